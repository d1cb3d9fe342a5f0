package jobs

import (
	"time"

	logrus "github.com/sirupsen/logrus"

	"ajo_ledger/internal/ledger"
)

// PayoutPoller periodically retries payouts stuck in pending. It runs
// alongside request handling; the ledger's row locks and status guards make
// the interleaving safe.
type PayoutPoller struct {
	Ledger   *ledger.Service
	Interval time.Duration
	MinAge   time.Duration // leave fresh payouts to the admin trigger
	stop     chan struct{}
}

func NewPayoutPoller(svc *ledger.Service, interval, minAge time.Duration) *PayoutPoller {
	return &PayoutPoller{
		Ledger:   svc,
		Interval: interval,
		MinAge:   minAge,
		stop:     make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine.
func (p *PayoutPoller) Start() {
	go func() {
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.runOnce()
			case <-p.stop:
				return
			}
		}
	}()
}

func (p *PayoutPoller) Stop() {
	close(p.stop)
}

func (p *PayoutPoller) runOnce() {
	payouts, err := p.Ledger.StalePendingPayouts(p.MinAge)
	if err != nil {
		logrus.WithError(err).Warn("payout poll failed")
		return
	}
	for _, payout := range payouts {
		if _, err := p.Ledger.RetryDisbursement(payout.ID); err != nil {
			logrus.WithError(err).WithField("payout_id", payout.ID).Warn("payout retry failed")
		}
	}
}
