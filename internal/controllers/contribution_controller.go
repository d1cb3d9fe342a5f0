package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"
)

// RecordContribution records a direct contribution for the active round.
// A completed settlement (this was the round's last contribution) rides
// along in the response.
func RecordContribution(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount           float64 `json:"amount" binding:"required"`
			PaymentReference string  `json:"payment_reference"`
			PaymentMethod    string  `json:"payment_method"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		if input.PaymentMethod == "" {
			input.PaymentMethod = "direct"
		}

		result, err := svc.RecordContribution(
			middleware.AuthUserID(c), paramID(c, "id"),
			input.Amount, input.PaymentReference, input.PaymentMethod)
		if err != nil {
			respondErr(c, err)
			return
		}

		data := gin.H{"contribution": result.Contribution}
		message := "contribution recorded"
		if result.Payout != nil {
			data["payout"] = result.Payout
			message = "contribution recorded and round settled"
		}
		if result.SettlementErr != nil && errors.Is(result.SettlementErr, ledger.ErrNoPayoutAccount) {
			message = "contribution recorded; round complete but recipient has no payout account"
		}
		respondOK(c, http.StatusCreated, message, data)
	}
}

// InitializeCharge starts a hosted gateway checkout for this round's
// contribution and returns the checkout URL.
func InitializeCharge(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		checkoutURL, reference, err := svc.InitializeGatewayCharge(middleware.AuthUserID(c), paramID(c, "id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "charge initialized", gin.H{
			"checkout_url": checkoutURL,
			"reference":    reference,
		})
	}
}

// VerifyCharge confirms a gateway charge and records the tied contribution.
func VerifyCharge(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Param("reference")
		result, err := svc.VerifyGatewayContribution(reference)
		if err != nil {
			respondErr(c, err)
			return
		}
		data := gin.H{"contribution": result.Contribution}
		if result.Payout != nil {
			data["payout"] = result.Payout
		}
		respondOK(c, http.StatusOK, "charge verified and contribution recorded", data)
	}
}

func GetRoundProgress(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		progress, err := svc.GetRoundProgress(middleware.AuthUserID(c), paramID(c, "id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "round progress", progress)
	}
}

func ContributionHistory(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := svc.ContributionHistory(middleware.AuthUserID(c), paramID(c, "id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "contributions", history)
	}
}
