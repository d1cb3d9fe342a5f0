package models

import (
	"time"

	"gorm.io/gorm"
)

// Cycle statuses
const (
	CycleStatusPending   = "pending"
	CycleStatusActive    = "active"
	CycleStatusCompleted = "completed"
)

// Cycle is one full rotation of payouts through a group's members.
// At most one cycle per group may be active. ActiveMemberID is the
// membership currently entitled to the next payout.
type Cycle struct {
	gorm.Model
	GroupID             uint       `json:"group_id" gorm:"index"`
	CurrentRound        int        `json:"current_round" gorm:"default:1"`
	ActiveMemberID      uint       `json:"active_member_id"`
	Status              string     `json:"status" gorm:"default:pending"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date"`
	CurrentRoundStartAt time.Time  `json:"current_round_start_at"`

	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
