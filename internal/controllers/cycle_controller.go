package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"
)

// StartCycle opens the rotation for a fully-approved group.
func StartCycle(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cycle, err := svc.StartCycle(paramID(c, "id"), middleware.AuthUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusCreated, "cycle started", cycle)
	}
}

// EndCycle closes the active cycle. Without force, a still-running rotation
// comes back as a warning payload rather than a closure.
func EndCycle(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Force bool `json:"force"`
		}
		// Body is optional; force defaults to false.
		_ = c.ShouldBindJSON(&input)

		result, err := svc.EndCycle(paramID(c, "id"), middleware.AuthUserID(c), input.Force)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !result.Ended {
			respondOK(c, http.StatusOK, result.Warning, result)
			return
		}
		respondOK(c, http.StatusOK, "cycle ended", result)
	}
}

// TriggerSettlement re-runs settlement for the active cycle, for rounds left
// pending by a blocked recipient.
func TriggerSettlement(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payout, err := svc.TriggerSettlement(paramID(c, "id"), middleware.AuthUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		if payout == nil {
			respondOK(c, http.StatusOK, "no settlement due", nil)
			return
		}
		respondOK(c, http.StatusOK, "round settled", payout)
	}
}

// SetPayoutOrder fixes the rotation explicitly, admin only, pre-cycle only.
func SetPayoutOrder(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			MembershipIDs []uint `json:"membership_ids" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		members, err := svc.SetPayoutOrder(paramID(c, "id"), middleware.AuthUserID(c), input.MembershipIDs)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "payout order set", members)
	}
}

func RandomizePayoutOrder(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := svc.RandomizePayoutOrder(paramID(c, "id"), middleware.AuthUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "payout order randomized", members)
	}
}
