package models

import (
	"time"

	"gorm.io/gorm"
)

// Payout statuses
const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"
)

// Payout records one round's settlement. Amount is the gross pool;
// the recipient is paid Amount - CommissionFee - PenaltyFee.
// Rows are append-only: one per (cycle, round).
type Payout struct {
	gorm.Model
	GroupID           uint       `json:"group_id" gorm:"index"`
	CycleID           uint       `json:"cycle_id" gorm:"index"`
	RecipientID       uint       `json:"recipient_id"` // User.ID of the member paid
	RoundNumber       int        `json:"round_number"`
	Amount            float64    `json:"amount"`
	CommissionFee     float64    `json:"commission_fee"`
	PenaltyFee        float64    `json:"penalty_fee"`
	Status            string     `json:"status" gorm:"default:pending"`
	TransferReference string     `json:"transfer_reference"`
	PayoutDate        *time.Time `json:"payout_date"`

	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// FinalAmount is what actually reaches the recipient.
func (p *Payout) FinalAmount() float64 {
	return p.Amount - p.CommissionFee - p.PenaltyFee
}
