package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ajo_ledger/internal/models"
)

// ProcessPayout pushes a settled round's funds to the recipient's bank
// account. Admin-triggered; a failed transfer leaves the payout row failed
// for manual retry, never rolling back the settlement ledger.
func (s *Service) ProcessPayout(payoutID, adminID uint) (*models.Payout, error) {
	var payout models.Payout
	err := s.db.First(&payout, payoutID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: payout %d", ErrNotFound, payoutID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := requireGroupAdmin(s.db, adminID, payout.GroupID); err != nil {
		return nil, err
	}
	return s.disburse(payoutID)
}

// disburse performs the actual transfer. Shared by the admin endpoint and
// the background poller; idempotent through the status guard taken under
// the payout row lock.
func (s *Service) disburse(payoutID uint) (*models.Payout, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var payout models.Payout
	if err := lockForUpdate(tx).First(&payout, payoutID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: payout %d", ErrNotFound, payoutID)
	}
	if payout.Status == models.PayoutStatusCompleted {
		tx.Rollback()
		return nil, fmt.Errorf("%w: payout already completed", ErrConflict)
	}

	// Manual-approval fallback: with no gateway configured the operator
	// completes the payout by decree.
	if s.gateway == nil {
		now := time.Now()
		payout.Status = models.PayoutStatusCompleted
		payout.TransferReference = "manual-" + uuid.NewString()
		payout.PayoutDate = &now
		if err := tx.Save(&payout).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		return &payout, nil
	}

	var membership models.Membership
	err := tx.Preload("PayoutAccount").
		Where("user_id = ? AND group_id = ?", payout.RecipientID, payout.GroupID).
		First(&membership).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: recipient membership", ErrNotFound)
	}
	if membership.PayoutAccount == nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: member %d", ErrNoPayoutAccount, membership.ID)
	}
	account := membership.PayoutAccount

	// Commit the lock scope before the gateway call: a slow transfer must
	// not hold the row lock against other ledger traffic.
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	narration := fmt.Sprintf("ajo payout round %d", payout.RoundNumber)
	transfer, err := s.gateway.Disburse(payout.FinalAmount(), account.BankCode, account.AccountNumber, narration)

	if err != nil || transfer == nil || !transfer.Success {
		uerr := s.db.Model(&models.Payout{}).Where("id = ?", payout.ID).
			Update("status", models.PayoutStatusFailed).Error
		if uerr != nil {
			logrus.WithError(uerr).WithField("payout_id", payout.ID).
				Error("could not mark payout failed; row left pending for the poller")
		}
		payout.Status = models.PayoutStatusFailed
		if err != nil {
			return &payout, fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		return &payout, fmt.Errorf("%w: transfer rejected by gateway", ErrExternalService)
	}

	now := time.Now()
	err = s.db.Model(&models.Payout{}).Where("id = ?", payout.ID).Updates(map[string]interface{}{
		"status":             models.PayoutStatusCompleted,
		"transfer_reference": transfer.TransferReference,
		"payout_date":        now,
	}).Error
	if err != nil {
		return nil, err
	}
	payout.Status = models.PayoutStatusCompleted
	payout.TransferReference = transfer.TransferReference
	payout.PayoutDate = &now

	logrus.WithFields(logrus.Fields{
		"payout_id": payout.ID,
		"transfer":  transfer.TransferReference,
		"amount":    payout.FinalAmount(),
	}).Info("payout disbursed")
	return &payout, nil
}

// PayoutHistory lists a group's payouts, newest first. Caller must be a
// member.
func (s *Service) PayoutHistory(userID, groupID uint) ([]models.Payout, error) {
	if _, err := s.membershipAnyStatus(userID, groupID); err != nil {
		return nil, err
	}
	var payouts []models.Payout
	err := s.db.Preload("Recipient").
		Where("group_id = ?", groupID).
		Order("round_number desc").
		Find(&payouts).Error
	return payouts, err
}

// ContributionHistory lists the caller's contributions in a group.
func (s *Service) ContributionHistory(userID, groupID uint) ([]models.Contribution, error) {
	if _, err := s.membershipAnyStatus(userID, groupID); err != nil {
		return nil, err
	}
	var contributions []models.Contribution
	err := s.db.Where("user_id = ? AND group_id = ?", userID, groupID).
		Order("id desc").
		Find(&contributions).Error
	return contributions, err
}

// ApplyChargeEvent absorbs a gateway charge webhook. Repeated delivery of
// the same event is a no-op: the transition only applies when the stored
// contribution is not already in the target state.
func (s *Service) ApplyChargeEvent(reference string, success bool) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var contribution models.Contribution
	err := lockForUpdate(tx).Where("payment_reference = ?", reference).First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		if success {
			// Charge succeeded before any verify call recorded it; the
			// verification path owns creation.
			if _, err := s.VerifyGatewayContribution(reference); err != nil {
				return err
			}
			return nil
		}
		return nil
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	target := models.ContributionStatusPaid
	if !success {
		target = models.ContributionStatusFailed
	}
	if contribution.Status == target || contribution.Status == models.ContributionStatusCompleted {
		tx.Rollback()
		return nil
	}
	if err := tx.Model(&contribution).Update("status", target).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// ApplyTransferEvent absorbs a gateway transfer webhook for an outbound
// payout, idempotently.
func (s *Service) ApplyTransferEvent(transferReference string, success bool) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var payout models.Payout
	err := lockForUpdate(tx).Where("transfer_reference = ?", transferReference).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil // transfer we did not originate
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	target := models.PayoutStatusCompleted
	if !success {
		target = models.PayoutStatusFailed
	}
	if payout.Status == target {
		tx.Rollback()
		return nil
	}
	updates := map[string]interface{}{"status": target}
	if success {
		updates["payout_date"] = time.Now()
	}
	if err := tx.Model(&payout).Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// StalePendingPayouts returns pending payouts older than the cutoff, for the
// background poller to retry.
func (s *Service) StalePendingPayouts(olderThan time.Duration) ([]models.Payout, error) {
	var payouts []models.Payout
	err := s.db.Where("status = ? AND created_at < ?", models.PayoutStatusPending, time.Now().Add(-olderThan)).
		Find(&payouts).Error
	return payouts, err
}

// RetryDisbursement is the poller entry point: same idempotent path as the
// admin trigger, minus the admin check.
func (s *Service) RetryDisbursement(payoutID uint) (*models.Payout, error) {
	return s.disburse(payoutID)
}
