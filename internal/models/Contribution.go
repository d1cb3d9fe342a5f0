package models

import (
	"time"

	"gorm.io/gorm"
)

// Contribution statuses
const (
	ContributionStatusPending   = "pending"
	ContributionStatusPaid      = "paid"
	ContributionStatusCompleted = "completed"
	ContributionStatusFailed    = "failed"
)

// Contribution is one member's payment into the pool for a single round.
// RoundNumber is stamped from the cycle's CurrentRound at insert time; the
// one-contribution-per-member-per-round rule matches on
// (user_id, cycle_id, round_number) with status paid or completed.
type Contribution struct {
	gorm.Model
	UserID           uint      `json:"user_id" gorm:"index"`
	GroupID          uint      `json:"group_id" gorm:"index"`
	CycleID          uint      `json:"cycle_id" gorm:"index"`
	RoundNumber      int       `json:"round_number"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"status" gorm:"default:pending"`
	PenaltyFee       float64   `json:"penalty_fee"`
	PaymentReference string    `json:"payment_reference" gorm:"uniqueIndex"`
	PaymentMethod    string    `json:"payment_method"`
	ContributionDate time.Time `json:"contribution_date"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
