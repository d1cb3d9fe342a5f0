package ledger

import (
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ajo_ledger/internal/models"
	"ajo_ledger/internal/notify"
)

// SettleRound closes the cycle's current round if it is complete: computes
// the payout, flags the recipient, and rotates to the next member (or
// completes the cycle when everyone has been paid). Safe against duplicate
// invocation — it re-checks completeness and the existing-payout guard under
// the cycle row lock and no-ops when there is nothing to do.
//
// Returns the created payout, or nil when no settlement was due.
func (s *Service) SettleRound(cycleID uint) (*models.Payout, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var cycle models.Cycle
	err := lockForUpdate(tx).Where("id = ? AND status = ?", cycleID, models.CycleStatusActive).First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, nil // cycle gone or already completed, nothing to settle
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	complete, err := isRoundComplete(tx, &cycle)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !complete {
		tx.Rollback()
		return nil, nil
	}

	// Settlement guard: one payout per (cycle, round), ever.
	var existing int64
	err = tx.Model(&models.Payout{}).
		Where("cycle_id = ? AND round_number = ?", cycle.ID, cycle.CurrentRound).
		Count(&existing).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if existing > 0 {
		tx.Rollback()
		return nil, nil
	}

	group, err := loadGroup(tx, cycle.GroupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var contributions []models.Contribution
	err = tx.Where("cycle_id = ? AND round_number = ? AND status IN ?",
		cycle.ID, cycle.CurrentRound, qualifyingStatuses).
		Find(&contributions).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var totalAmount, totalPenalties float64
	for _, c := range contributions {
		totalAmount += c.Amount
		totalPenalties += c.PenaltyFee
	}
	commissionFee := totalAmount * group.CommissionRate / 100
	finalAmount := totalAmount - commissionFee - totalPenalties
	if finalAmount < 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: commission and penalties (%.2f) exceed pool (%.2f)",
			ErrValidation, commissionFee+totalPenalties, totalAmount)
	}

	var recipient models.Membership
	err = tx.First(&recipient, cycle.ActiveMemberID).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: active member %d", ErrNotFound, cycle.ActiveMemberID)
	}
	if recipient.PayoutAccountID == nil {
		// Leave the round pending so the admin can link an account and
		// re-trigger settlement.
		tx.Rollback()
		return nil, fmt.Errorf("%w: member %d", ErrNoPayoutAccount, recipient.ID)
	}

	payout := models.Payout{
		GroupID:       group.ID,
		CycleID:       cycle.ID,
		RecipientID:   recipient.UserID,
		RoundNumber:   cycle.CurrentRound,
		Amount:        totalAmount,
		CommissionFee: commissionFee,
		PenaltyFee:    totalPenalties,
		Status:        models.PayoutStatusPending,
	}
	if err := tx.Create(&payout).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	recipient.HasReceivedPayout = true
	if err := tx.Save(&recipient).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Prior-round contributions are marked completed, never deleted:
	// history survives for reporting and the next round's uniqueness
	// check matches on the incremented round number.
	err = tx.Model(&models.Contribution{}).
		Where("cycle_id = ? AND round_number = ? AND status = ?",
			cycle.ID, cycle.CurrentRound, models.ContributionStatusPaid).
		Update("status", models.ContributionStatusCompleted).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	next, err := nextRecipient(tx, group.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	cycleCompleted := next == nil
	if cycleCompleted {
		now := time.Now()
		cycle.Status = models.CycleStatusCompleted
		cycle.EndDate = &now
		group.Status = models.GroupStatusCompleted
		if err := tx.Save(group).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		cycle.CurrentRound++
		cycle.ActiveMemberID = next.ID
		cycle.CurrentRoundStartAt = time.Now()
	}
	if err := tx.Save(&cycle).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"group_id":     group.ID,
		"cycle_id":     cycle.ID,
		"round":        payout.RoundNumber,
		"final_amount": payout.FinalAmount(),
		"completed":    cycleCompleted,
	}).Info("round settled")

	if cycleCompleted {
		s.notifyMembers(group, "Cycle completed",
			fmt.Sprintf("<p>The savings cycle for <b>%s</b> is complete. Every member has received a payout.</p>", group.Name))
	} else {
		s.notifyMembers(group, "New round started",
			fmt.Sprintf("<p>Round %d of <b>%s</b> has started. Contribute %.2f to keep the rotation moving.</p>",
				cycle.CurrentRound, group.Name, group.ContributionAmount))
	}

	return &payout, nil
}

// TriggerSettlement lets the group admin re-run settlement for the active
// cycle, typically after fixing whatever blocked it (a missing payout
// account). Idempotent like SettleRound; nil payout means nothing was due.
func (s *Service) TriggerSettlement(groupID, adminID uint) (*models.Payout, error) {
	if _, err := requireGroupAdmin(s.db, adminID, groupID); err != nil {
		return nil, err
	}
	cycle, err := activeCycleLocked(s.db, groupID)
	if err != nil {
		return nil, err
	}
	return s.SettleRound(cycle.ID)
}

// nextRecipient picks the first active member in rotation order who has not
// been paid this cycle. Nil means the rotation is exhausted.
func nextRecipient(tx *gorm.DB, groupID uint) (*models.Membership, error) {
	members, err := orderedActiveMemberships(tx, groupID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if !members[i].HasReceivedPayout {
			return &members[i], nil
		}
	}
	return nil, nil
}

// notifyMembers fans a notice out to every active member, fire-and-forget.
func (s *Service) notifyMembers(group *models.Group, subject, body string) {
	var members []models.Membership
	err := s.db.Preload("User").
		Where("group_id = ? AND status = ?", group.ID, models.MembershipStatusActive).
		Find(&members).Error
	if err != nil {
		logrus.WithError(err).Warn("member notice skipped: membership lookup failed")
		return
	}
	for _, m := range members {
		notify.Dispatch(s.mailer, m.User.Email, subject, body)
	}
}
