package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ajo_ledger/internal/models"
)

const (
	minGroupMembers = 2
	maxGroupMembers = 12

	// Flat late/shortfall penalty as a share of the contribution amount.
	penaltyRate = 0.05

	defaultCommissionRate = 2.0
)

// GroupInput carries the admin-supplied fields for a new group. A nil
// CommissionRate means "use the default"; an explicit zero is honored.
type GroupInput struct {
	Name                  string
	Description           string
	ContributionAmount    float64
	ContributionFrequency string
	PayoutFrequency       string
	CommissionRate        *float64
	TotalMembers          int
}

// CreateGroup creates a group and its admin membership in one transaction.
// The creator is always the group admin; the penalty fee is derived from
// the contribution amount.
func (s *Service) CreateGroup(adminID uint, input GroupInput) (*models.Group, error) {
	if input.ContributionAmount <= 0 {
		return nil, fmt.Errorf("%w: contribution amount must be positive", ErrValidation)
	}
	if input.TotalMembers < minGroupMembers || input.TotalMembers > maxGroupMembers {
		return nil, fmt.Errorf("%w: total members must be between %d and %d", ErrValidation, minGroupMembers, maxGroupMembers)
	}
	if input.ContributionFrequency == "" {
		input.ContributionFrequency = models.FrequencyMonthly
	}
	if input.PayoutFrequency == "" {
		input.PayoutFrequency = input.ContributionFrequency
	}
	if !models.ValidFrequency(input.ContributionFrequency) || !models.ValidFrequency(input.PayoutFrequency) {
		return nil, fmt.Errorf("%w: frequency must be daily, weekly or monthly", ErrValidation)
	}
	commissionRate := defaultCommissionRate
	if input.CommissionRate != nil {
		commissionRate = *input.CommissionRate
	}
	if commissionRate < 0 || commissionRate >= 100 {
		return nil, fmt.Errorf("%w: commission rate out of range", ErrValidation)
	}

	group := models.Group{
		Name:                  strings.TrimSpace(input.Name),
		Description:           input.Description,
		ContributionAmount:    input.ContributionAmount,
		ContributionFrequency: input.ContributionFrequency,
		PayoutFrequency:       input.PayoutFrequency,
		PenaltyFee:            input.ContributionAmount * penaltyRate,
		CommissionRate:        commissionRate,
		TotalMembers:          input.TotalMembers,
		AdminID:               adminID,
		Status:                models.GroupStatusPending,
		InviteCode:            strings.Split(uuid.NewString(), "-")[0],
	}
	if group.Name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidation)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.Create(&group).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	admin := models.Membership{
		UserID:  adminID,
		GroupID: group.ID,
		Status:  models.MembershipStatusActive,
		Role:    models.MembershipRoleAdmin,
	}
	if err := tx.Create(&admin).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// JoinGroup registers a pending membership against an invite code. The admin
// approves or rejects it afterwards.
func (s *Service) JoinGroup(userID uint, inviteCode string) (*models.Membership, error) {
	var group models.Group
	err := s.db.Where("invite_code = ?", inviteCode).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no group for invite code", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupStatusPending {
		return nil, fmt.Errorf("%w: group is %s and not accepting members", ErrConflict, group.Status)
	}

	var existing int64
	if err := s.db.Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ?", userID, group.ID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: already a member of this group", ErrConflict)
	}

	membership := models.Membership{
		UserID:  userID,
		GroupID: group.ID,
		Status:  models.MembershipStatusPending,
		Role:    models.MembershipRoleMember,
	}
	if err := s.db.Create(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// ReviewMembership approves or rejects a pending membership. Approval is
// refused once the group already has its full member count.
func (s *Service) ReviewMembership(adminID, groupID, membershipID uint, approve bool) (*models.Membership, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	group, err := loadGroup(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := requireGroupAdmin(tx, adminID, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}

	var membership models.Membership
	err = lockForUpdate(tx).Where("id = ? AND group_id = ?", membershipID, groupID).First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: membership %d", ErrNotFound, membershipID)
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if membership.Status != models.MembershipStatusPending {
		tx.Rollback()
		return nil, fmt.Errorf("%w: membership already %s", ErrConflict, membership.Status)
	}

	if approve {
		active, err := activeMemberCount(tx, groupID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if int(active) >= group.TotalMembers {
			tx.Rollback()
			return nil, fmt.Errorf("%w: group already has %d members", ErrConflict, group.TotalMembers)
		}
		membership.Status = models.MembershipStatusActive
	} else {
		membership.Status = models.MembershipStatusRejected
	}

	if err := tx.Save(&membership).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// GetGroup returns a group with its memberships; the caller must belong to it.
func (s *Service) GetGroup(userID, groupID uint) (*models.Group, error) {
	if _, err := s.membershipAnyStatus(userID, groupID); err != nil {
		return nil, err
	}
	var group models.Group
	err := s.db.Preload("Memberships.User").First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// MyGroups lists every group the user has a membership row in.
func (s *Service) MyGroups(userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ? AND memberships.deleted_at IS NULL", userID).
		Find(&groups).Error
	return groups, err
}

// ListMembers returns the memberships of a group the caller belongs to.
func (s *Service) ListMembers(userID, groupID uint) ([]models.Membership, error) {
	if _, err := activeMembership(s.db, userID, groupID); err != nil {
		return nil, err
	}
	var members []models.Membership
	err := s.db.Preload("User").Preload("PayoutAccount").
		Where("group_id = ?", groupID).
		Order("payout_order, id").
		Find(&members).Error
	return members, err
}

// LinkPayoutAccount attaches one of the user's bank accounts to their
// membership so settlement can pay them.
func (s *Service) LinkPayoutAccount(userID, groupID, accountID uint) (*models.Membership, error) {
	var account models.PayoutAccount
	err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: payout account %d", ErrNotFound, accountID)
	}
	if err != nil {
		return nil, err
	}

	membership, err := activeMembership(s.db, userID, groupID)
	if err != nil {
		return nil, err
	}
	membership.PayoutAccountID = &account.ID
	if err := s.db.Save(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *Service) membershipAnyStatus(userID, groupID uint) (*models.Membership, error) {
	var m models.Membership
	err := s.db.Where("user_id = ? AND group_id = ?", userID, groupID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
