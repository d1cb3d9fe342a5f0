package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"
	"ajo_ledger/internal/payments"
)

// ProcessPayout pushes a settled round's funds out through the gateway, or
// completes it by decree when no gateway is configured.
func ProcessPayout(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payout, err := svc.ProcessPayout(paramID(c, "id"), middleware.AuthUserID(c))
		if err != nil {
			// The payout row reflects the failure; return it alongside.
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "payout processed", payout)
	}
}

func PayoutHistory(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payouts, err := svc.PayoutHistory(middleware.AuthUserID(c), paramID(c, "id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "payouts", payouts)
	}
}

// CreatePayoutAccount saves a bank account for the caller.
func CreatePayoutAccount(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			BankName      string `json:"bank_name" binding:"required"`
			BankCode      string `json:"bank_code"`
			AccountNumber string `json:"account_number" binding:"required"`
			AccountName   string `json:"account_name"`
			IsDefault     bool   `json:"is_default"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		account, err := svc.CreatePayoutAccount(middleware.AuthUserID(c),
			input.BankName, input.BankCode, input.AccountNumber, input.AccountName, input.IsDefault)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusCreated, "payout account saved", account)
	}
}

func ListPayoutAccounts(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := svc.ListPayoutAccounts(middleware.AuthUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "payout accounts", accounts)
	}
}

// ListBanks passes the gateway's bank directory through.
func ListBanks(gateway payments.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gateway == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "no payment gateway configured"})
			return
		}
		banks, err := gateway.ListBanks()
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "could not fetch banks: " + err.Error()})
			return
		}
		respondOK(c, http.StatusOK, "banks", banks)
	}
}
