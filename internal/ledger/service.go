package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ajo_ledger/internal/models"
	"ajo_ledger/internal/notify"
	"ajo_ledger/internal/payments"
)

// Service is the contribution-and-payout rotation engine. All state
// transitions run inside transactions on db; mailer and gateway are external
// collaborators called only after the ledger has committed.
type Service struct {
	db      *gorm.DB
	mailer  notify.Mailer
	gateway payments.Gateway // nil puts payout processing in manual-approval mode
}

func New(db *gorm.DB, mailer notify.Mailer, gateway payments.Gateway) *Service {
	return &Service{db: db, mailer: mailer, gateway: gateway}
}

// lockForUpdate applies a row lock where the dialect supports it. SQLite
// (tests) serializes writers on its own and cannot parse FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// activeCycleLocked loads and locks the group's active cycle. The cycle row
// is the serialization point for everything round-scoped.
func activeCycleLocked(tx *gorm.DB, groupID uint) (*models.Cycle, error) {
	var cycle models.Cycle
	err := lockForUpdate(tx).
		Where("group_id = ? AND status = ?", groupID, models.CycleStatusActive).
		First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveCycle
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func activeMembership(tx *gorm.DB, userID, groupID uint) (*models.Membership, error) {
	var m models.Membership
	err := tx.Where("user_id = ? AND group_id = ? AND status = ?", userID, groupID, models.MembershipStatusActive).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// requireGroupAdmin loads the caller's membership and checks the admin role.
func requireGroupAdmin(tx *gorm.DB, userID, groupID uint) (*models.Membership, error) {
	m, err := activeMembership(tx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if m.Role != models.MembershipRoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return m, nil
}

func loadGroup(tx *gorm.DB, groupID uint) (*models.Group, error) {
	var group models.Group
	err := tx.First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// orderedActiveMemberships returns the group's active members in rotation
// order: explicit payout_order when assigned, join order otherwise.
func orderedActiveMemberships(tx *gorm.DB, groupID uint) ([]models.Membership, error) {
	var members []models.Membership
	err := tx.Where("group_id = ? AND status = ?", groupID, models.MembershipStatusActive).
		Order("CASE WHEN payout_order > 0 THEN payout_order ELSE 1000000 END, id").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
