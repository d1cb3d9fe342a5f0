package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	logrus "github.com/sirupsen/logrus"

	"ajo_ledger/internal/models"
	"ajo_ledger/internal/notify"
	"ajo_ledger/internal/payments"
)

// amountTolerance is how far a contribution may drift from the group's
// required amount and still be treated as exact.
const amountTolerance = 0.01

// RecordResult reports a recorded contribution plus whatever the post-commit
// settlement attempt produced. SettlementErr never invalidates the
// contribution itself: the ledger row is committed before settlement runs
// and settlement is idempotently retryable.
type RecordResult struct {
	Contribution  *models.Contribution
	Payout        *models.Payout
	SettlementErr error
}

// RecordContribution validates and records one member's contribution for the
// active cycle's current round. All preconditions are checked inside a single
// transaction holding the cycle row lock, so concurrent submissions from the
// same member for the same round cannot both succeed.
func (s *Service) RecordContribution(userID, groupID uint, amount float64, paymentReference, paymentMethod string) (*RecordResult, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	group, err := loadGroup(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	cycle, err := activeCycleLocked(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := activeMembership(tx, userID, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if paymentReference != "" {
		var n int64
		if err := tx.Model(&models.Contribution{}).
			Where("payment_reference = ?", paymentReference).
			Count(&n).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if n > 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePayment, paymentReference)
		}
	}

	var prior int64
	err = tx.Model(&models.Contribution{}).
		Where("user_id = ? AND cycle_id = ? AND round_number = ? AND status IN ?",
			userID, cycle.ID, cycle.CurrentRound, qualifyingStatuses).
		Count(&prior).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if prior > 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: round %d", ErrAlreadyContributed, cycle.CurrentRound)
	}

	penalty := 0.0
	switch {
	case amount > group.ContributionAmount+amountTolerance:
		tx.Rollback()
		return nil, fmt.Errorf("%w: expected %.2f, sent %.2f", ErrValidation, group.ContributionAmount, amount)
	case amount < group.ContributionAmount-amountTolerance:
		// Shortfall still counts as contributed; the flat penalty is
		// bookkeeping settled out of the round's payout.
		penalty = group.PenaltyFee
	}
	if amount <= 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if paymentReference == "" {
		paymentReference = "AJO-" + uuid.NewString()
	}

	contribution := models.Contribution{
		UserID:           userID,
		GroupID:          groupID,
		CycleID:          cycle.ID,
		RoundNumber:      cycle.CurrentRound,
		Amount:           amount,
		Status:           models.ContributionStatusPaid,
		PenaltyFee:       penalty,
		PaymentReference: paymentReference,
		PaymentMethod:    paymentMethod,
		ContributionDate: time.Now(),
	}
	if err := tx.Create(&contribution).Error; err != nil {
		tx.Rollback()
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePayment, paymentReference)
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.sendContributionReceipt(&contribution, group)

	result := &RecordResult{Contribution: &contribution}
	payout, err := s.SettleRound(cycle.ID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"cycle_id": cycle.ID,
			"group_id": groupID,
		}).Warn("round settlement failed; contribution committed")
		result.SettlementErr = err
	}
	result.Payout = payout
	return result, nil
}

func (s *Service) sendContributionReceipt(c *models.Contribution, group *models.Group) {
	var user models.User
	if err := s.db.First(&user, c.UserID).Error; err != nil {
		logrus.WithError(err).Warn("receipt mail skipped: user lookup failed")
		return
	}
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your contribution of %.2f to <b>%s</b> (round %d) has been recorded.</p><p>Reference: %s</p>",
		user.Name, c.Amount, group.Name, c.RoundNumber, c.PaymentReference,
	)
	notify.Dispatch(s.mailer, user.Email, "Contribution received", body)
}

// InitializeGatewayCharge starts a hosted-checkout collection for the
// member's contribution. Nothing is written to the ledger until the charge
// is verified; the reference ties the two together.
func (s *Service) InitializeGatewayCharge(userID, groupID uint) (checkoutURL, reference string, err error) {
	if s.gateway == nil {
		return "", "", fmt.Errorf("%w: no payment gateway configured", ErrExternalService)
	}

	group, err := loadGroup(s.db, groupID)
	if err != nil {
		return "", "", err
	}
	if _, err := activeCycleLocked(s.db, groupID); err != nil {
		return "", "", err
	}
	if _, err := activeMembership(s.db, userID, groupID); err != nil {
		return "", "", err
	}
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return "", "", err
	}

	reference = "AJO-" + uuid.NewString()
	metadata := map[string]string{
		"user_id":  strconv.FormatUint(uint64(userID), 10),
		"group_id": strconv.FormatUint(uint64(groupID), 10),
	}
	checkoutURL, err = s.gateway.InitializeCharge(group.ContributionAmount, user.Email, reference, metadata)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return checkoutURL, reference, nil
}

// verifyRetryDelay spaces the single permitted retry when the gateway has
// not yet indexed a fresh reference.
var verifyRetryDelay = 3 * time.Second

// VerifyGatewayContribution confirms a charge with the gateway and records
// the matching contribution through the same uniqueness path as direct
// recording. Exactly one retry on the gateway's "not yet found" answer.
func (s *Service) VerifyGatewayContribution(reference string) (*RecordResult, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no payment gateway configured", ErrExternalService)
	}

	charge, err := s.gateway.VerifyCharge(reference)
	if errors.Is(err, payments.ErrChargeNotFound) {
		time.Sleep(verifyRetryDelay)
		charge, err = s.gateway.VerifyCharge(reference)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if charge.Status != "success" {
		return nil, fmt.Errorf("%w: charge %s is %s", ErrValidation, reference, charge.Status)
	}

	userID, err := strconv.ParseUint(charge.Metadata["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: charge metadata missing user_id", ErrValidation)
	}
	groupID, err := strconv.ParseUint(charge.Metadata["group_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: charge metadata missing group_id", ErrValidation)
	}

	return s.RecordContribution(uint(userID), uint(groupID), charge.Amount, reference, "gateway")
}
