package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Phone    string `json:"phone"`

	Memberships    []Membership    `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	PayoutAccounts []PayoutAccount `gorm:"foreignKey:UserID" json:"payout_accounts,omitempty"`
}
