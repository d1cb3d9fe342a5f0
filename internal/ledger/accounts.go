package ledger

import (
	"fmt"
	"strings"

	"ajo_ledger/internal/models"
)

// CreatePayoutAccount stores a bank account for the user. When the new
// account is flagged default, every other account of the user is reset so
// exactly one default exists.
func (s *Service) CreatePayoutAccount(userID uint, bankName, bankCode, accountNumber, accountName string, isDefault bool) (*models.PayoutAccount, error) {
	bankName = strings.TrimSpace(bankName)
	accountNumber = strings.TrimSpace(accountNumber)
	if bankName == "" || accountNumber == "" {
		return nil, fmt.Errorf("%w: bank name and account number are required", ErrValidation)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var existing int64
	if err := tx.Model(&models.PayoutAccount{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if existing == 0 {
		isDefault = true // first account is always the default
	}
	if isDefault {
		err := tx.Model(&models.PayoutAccount{}).
			Where("user_id = ?", userID).
			Update("is_default", false).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	account := models.PayoutAccount{
		UserID:        userID,
		BankName:      bankName,
		BankCode:      bankCode,
		AccountNumber: accountNumber,
		AccountName:   accountName,
		IsDefault:     isDefault,
	}
	if err := tx.Create(&account).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ListPayoutAccounts returns the user's saved bank accounts.
func (s *Service) ListPayoutAccounts(userID uint) ([]models.PayoutAccount, error) {
	var accounts []models.PayoutAccount
	err := s.db.Where("user_id = ?", userID).Order("is_default desc, id").Find(&accounts).Error
	return accounts, err
}
