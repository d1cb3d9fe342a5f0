package ledger

import (
	"gorm.io/gorm"

	"ajo_ledger/internal/models"
)

// qualifyingStatuses are the contribution states that count toward a round.
var qualifyingStatuses = []string{models.ContributionStatusPaid, models.ContributionStatusCompleted}

func roundContributionCount(tx *gorm.DB, cycle *models.Cycle) (int64, error) {
	var n int64
	err := tx.Model(&models.Contribution{}).
		Where("cycle_id = ? AND round_number = ? AND status IN ?", cycle.ID, cycle.CurrentRound, qualifyingStatuses).
		Count(&n).Error
	return n, err
}

func activeMemberCount(tx *gorm.DB, groupID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Membership{}).
		Where("group_id = ? AND status = ?", groupID, models.MembershipStatusActive).
		Count(&n).Error
	return n, err
}

// isRoundComplete reports whether every active member has a qualifying
// contribution for the cycle's current round. Equality, not >=: a stale
// count must never rotate the cycle early. Both counts must be read inside
// the transaction that holds the cycle row lock.
func isRoundComplete(tx *gorm.DB, cycle *models.Cycle) (bool, error) {
	contributed, err := roundContributionCount(tx, cycle)
	if err != nil {
		return false, err
	}
	members, err := activeMemberCount(tx, cycle.GroupID)
	if err != nil {
		return false, err
	}
	return members > 0 && contributed == members, nil
}
