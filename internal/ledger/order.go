package ledger

import (
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"ajo_ledger/internal/models"
)

// SetPayoutOrder assigns an explicit rotation: orderedMembershipIDs must
// name every active membership exactly once, first entry pays out first.
// Only allowed before any cycle has been created for the group.
func (s *Service) SetPayoutOrder(groupID, adminID uint, orderedMembershipIDs []uint) ([]models.Membership, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if _, err := loadGroup(tx, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := requireGroupAdmin(tx, adminID, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := requireNoCycle(tx, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}

	members, err := orderedActiveMemberships(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(orderedMembershipIDs) != len(members) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order lists %d memberships, group has %d active",
			ErrValidation, len(orderedMembershipIDs), len(members))
	}
	byID := make(map[uint]*models.Membership, len(members))
	for i := range members {
		byID[members[i].ID] = &members[i]
	}

	seen := make(map[uint]bool, len(orderedMembershipIDs))
	for pos, id := range orderedMembershipIDs {
		m, ok := byID[id]
		if !ok {
			tx.Rollback()
			return nil, fmt.Errorf("%w: membership %d is not an active member of this group", ErrValidation, id)
		}
		if seen[id] {
			tx.Rollback()
			return nil, fmt.Errorf("%w: membership %d listed twice", ErrValidation, id)
		}
		seen[id] = true
		m.PayoutOrder = pos + 1
	}

	for i := range members {
		if err := tx.Model(&models.Membership{}).
			Where("id = ?", members[i].ID).
			Update("payout_order", members[i].PayoutOrder).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.ListMembers(adminID, groupID)
}

// RandomizePayoutOrder shuffles the active members into a uniform random
// rotation. Same precondition as SetPayoutOrder: no cycle yet.
func (s *Service) RandomizePayoutOrder(groupID, adminID uint) ([]models.Membership, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if _, err := loadGroup(tx, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := requireGroupAdmin(tx, adminID, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := requireNoCycle(tx, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}

	members, err := orderedActiveMemberships(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	positions := make([]int, len(members))
	for i := range positions {
		positions[i] = i + 1
	}
	rand.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})

	for i := range members {
		if err := tx.Model(&models.Membership{}).
			Where("id = ?", members[i].ID).
			Update("payout_order", positions[i]).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.ListMembers(adminID, groupID)
}

func requireNoCycle(tx *gorm.DB, groupID uint) error {
	var n int64
	if err := tx.Model(&models.Cycle{}).Where("group_id = ?", groupID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: payout order is fixed once a cycle exists", ErrConflict)
	}
	return nil
}
