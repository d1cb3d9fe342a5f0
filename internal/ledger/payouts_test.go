package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ajo_ledger/internal/models"
)

func settleOneRound(t *testing.T, svc *Service, tg *testGroup, amount float64) *models.Payout {
	t.Helper()
	if _, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID); err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	var last *RecordResult
	var err error
	for _, user := range tg.Members {
		last, err = svc.RecordContribution(user.ID, tg.Group.ID, amount, "", "direct")
		if err != nil {
			t.Fatalf("contribution failed: %v", err)
		}
	}
	if last.Payout == nil {
		t.Fatal("expected round to settle")
	}
	return last.Payout
}

func TestProcessPayout_GatewayTransfer(t *testing.T) {
	svc, db, _, gateway := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)
	payout := settleOneRound(t, svc, tg, 500)

	processed, err := svc.ProcessPayout(payout.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("ProcessPayout failed: %v", err)
	}
	if processed.Status != models.PayoutStatusCompleted {
		t.Errorf("status: expected completed, got %s", processed.Status)
	}
	if processed.TransferReference == "" {
		t.Error("expected a transfer reference from the gateway")
	}
	if processed.PayoutDate == nil {
		t.Error("expected payout date to be set")
	}
	if gateway.disburseCalls != 1 {
		t.Errorf("expected 1 disburse call, got %d", gateway.disburseCalls)
	}

	// Re-processing a completed payout is refused.
	_, err = svc.ProcessPayout(payout.ID, tg.Admin.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on re-process, got %v", err)
	}
}

func TestProcessPayout_FailedTransferLeavesRowFailed(t *testing.T) {
	svc, db, _, gateway := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)
	payout := settleOneRound(t, svc, tg, 500)

	gateway.disburseFail = true
	_, err := svc.ProcessPayout(payout.ID, tg.Admin.ID)
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}

	var reloaded models.Payout
	if err := db.First(&reloaded, payout.ID).Error; err != nil {
		t.Fatalf("payout reload failed: %v", err)
	}
	if reloaded.Status != models.PayoutStatusFailed {
		t.Errorf("status: expected failed, got %s", reloaded.Status)
	}

	// The ledger itself is untouched: settlement rows survive a failed
	// transfer and the payout is retryable.
	gateway.disburseFail = false
	processed, err := svc.ProcessPayout(payout.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if processed.Status != models.PayoutStatusCompleted {
		t.Errorf("retry status: expected completed, got %s", processed.Status)
	}
}

func TestProcessPayout_ManualApprovalWithoutGateway(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, &recordingMailer{}, nil) // no gateway configured
	tg := seedGroup(t, svc, db, 2, 500, false)
	payout := settleOneRound(t, svc, tg, 500)

	processed, err := svc.ProcessPayout(payout.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("manual ProcessPayout failed: %v", err)
	}
	if processed.Status != models.PayoutStatusCompleted {
		t.Errorf("status: expected completed, got %s", processed.Status)
	}
	if !strings.HasPrefix(processed.TransferReference, "manual-") {
		t.Errorf("expected manual transfer reference, got %s", processed.TransferReference)
	}
}

func TestProcessPayout_RequiresGroupAdmin(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)
	payout := settleOneRound(t, svc, tg, 500)

	_, err := svc.ProcessPayout(payout.ID, tg.Members[1].ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
}

func TestApplyTransferEvent_Idempotent(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)
	payout := settleOneRound(t, svc, tg, 500)

	processed, err := svc.ProcessPayout(payout.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("ProcessPayout failed: %v", err)
	}

	// The gateway redelivers the success event; status must not churn.
	for i := 0; i < 3; i++ {
		if err := svc.ApplyTransferEvent(processed.TransferReference, true); err != nil {
			t.Fatalf("ApplyTransferEvent failed on delivery %d: %v", i+1, err)
		}
	}
	var reloaded models.Payout
	db.First(&reloaded, payout.ID)
	if reloaded.Status != models.PayoutStatusCompleted {
		t.Errorf("status: expected completed, got %s", reloaded.Status)
	}

	// Events for transfers we never made are acknowledged and ignored.
	if err := svc.ApplyTransferEvent("TRF-unknown", true); err != nil {
		t.Fatalf("unknown transfer event errored: %v", err)
	}
}

func TestApplyChargeEvent_Idempotent(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 3, 1000, false)

	if _, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID); err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	if _, err := svc.RecordContribution(tg.Admin.ID, tg.Group.ID, 1000, "PAY-9", "direct"); err != nil {
		t.Fatalf("contribution failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.ApplyChargeEvent("PAY-9", true); err != nil {
			t.Fatalf("ApplyChargeEvent failed on delivery %d: %v", i+1, err)
		}
	}

	var n int64
	db.Model(&models.Contribution{}).Where("payment_reference = ?", "PAY-9").Count(&n)
	if n != 1 {
		t.Errorf("expected 1 contribution for PAY-9, got %d", n)
	}
	var c models.Contribution
	db.Where("payment_reference = ?", "PAY-9").First(&c)
	if c.Status != models.ContributionStatusPaid {
		t.Errorf("status: expected paid, got %s", c.Status)
	}
}

func TestStalePendingPayouts(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)
	payout := settleOneRound(t, svc, tg, 500)

	// Fresh pending payout is left to the admin.
	stale, err := svc.StalePendingPayouts(time.Hour)
	if err != nil {
		t.Fatalf("StalePendingPayouts failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("expected no stale payouts yet, got %d", len(stale))
	}

	// Age the row; the poller should pick it up and the retry path should
	// complete it.
	db.Model(&models.Payout{}).Where("id = ?", payout.ID).
		Update("created_at", time.Now().Add(-2*time.Hour))

	stale, err = svc.StalePendingPayouts(time.Hour)
	if err != nil {
		t.Fatalf("StalePendingPayouts failed: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale payout, got %d", len(stale))
	}

	processed, err := svc.RetryDisbursement(stale[0].ID)
	if err != nil {
		t.Fatalf("RetryDisbursement failed: %v", err)
	}
	if processed.Status != models.PayoutStatusCompleted {
		t.Errorf("status: expected completed, got %s", processed.Status)
	}
}
