package models

import "gorm.io/gorm"

// PayoutAccount is a member's bank account for receiving payouts.
// Exactly one account per user is the default; inserting a new default
// resets the others.
type PayoutAccount struct {
	gorm.Model
	UserID        uint   `json:"user_id" gorm:"index"`
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	IsDefault     bool   `json:"is_default" gorm:"default:false"`
}
