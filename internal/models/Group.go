package models

import "gorm.io/gorm"

// Group statuses
const (
	GroupStatusPending   = "pending"
	GroupStatusActive    = "active"
	GroupStatusCompleted = "completed"
	GroupStatusArchived  = "archived"
)

// Contribution / payout cadences
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Group is a rotating-savings group: every member contributes
// ContributionAmount each round and one member takes the pooled payout.
type Group struct {
	gorm.Model
	Name                  string  `json:"name" binding:"required"`
	Description           string  `json:"description"`
	ContributionAmount    float64 `json:"contribution_amount"`
	ContributionFrequency string  `json:"contribution_frequency" gorm:"default:monthly"`
	PayoutFrequency       string  `json:"payout_frequency" gorm:"default:monthly"`
	PenaltyFee            float64 `json:"penalty_fee"` // flat, 5% of ContributionAmount
	CommissionRate        float64 `json:"commission_rate"`
	TotalMembers          int     `json:"total_members"`
	AdminID               uint    `json:"admin_id" gorm:"index"`
	Status                string  `json:"status" gorm:"default:pending"`
	InviteCode            string  `json:"invite_code" gorm:"uniqueIndex"`

	Memberships []Membership `gorm:"foreignKey:GroupID" json:"memberships,omitempty"`
	Cycles      []Cycle      `gorm:"foreignKey:GroupID" json:"cycles,omitempty"`
}

func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}
