package models

import "gorm.io/gorm"

// Membership statuses and roles
const (
	MembershipStatusPending  = "pending"
	MembershipStatusActive   = "active"
	MembershipStatusRejected = "rejected"

	MembershipRoleAdmin  = "admin"
	MembershipRoleMember = "member"
)

// Membership links a user to a group. PayoutOrder is the member's position
// in the rotation once assigned; HasReceivedPayout flips exactly once per
// cycle when the member is settled.
type Membership struct {
	gorm.Model
	UserID            uint   `json:"user_id" gorm:"index:idx_member_group,unique"`
	GroupID           uint   `json:"group_id" gorm:"index:idx_member_group,unique"`
	Status            string `json:"status" gorm:"default:pending"`
	Role              string `json:"role" gorm:"default:member"`
	PayoutOrder       int    `json:"payout_order"`
	HasReceivedPayout bool   `json:"has_received_payout" gorm:"default:false"`
	PayoutAccountID   *uint  `json:"payout_account_id"`

	User          User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PayoutAccount *PayoutAccount `gorm:"foreignKey:PayoutAccountID" json:"payout_account,omitempty"`
}
