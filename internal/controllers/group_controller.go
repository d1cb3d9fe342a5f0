package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"
)

// CreateGroup registers a new savings group with the caller as admin.
func CreateGroup(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name                  string   `json:"name" binding:"required"`
			Description           string   `json:"description"`
			ContributionAmount    float64  `json:"contribution_amount" binding:"required"`
			ContributionFrequency string   `json:"contribution_frequency"`
			PayoutFrequency       string   `json:"payout_frequency"`
			CommissionRate        *float64 `json:"commission_rate"`
			TotalMembers          int      `json:"total_members" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		group, err := svc.CreateGroup(middleware.AuthUserID(c), ledger.GroupInput{
			Name:                  input.Name,
			Description:           input.Description,
			ContributionAmount:    input.ContributionAmount,
			ContributionFrequency: input.ContributionFrequency,
			PayoutFrequency:       input.PayoutFrequency,
			CommissionRate:        input.CommissionRate,
			TotalMembers:          input.TotalMembers,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusCreated, "group created", group)
	}
}

func GetGroup(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID := paramID(c, "id")
		group, err := svc.GetGroup(middleware.AuthUserID(c), groupID)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "group", group)
	}
}

func ListMyGroups(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := svc.MyGroups(middleware.AuthUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "groups", groups)
	}
}

// JoinGroup creates a pending membership from an invite code.
func JoinGroup(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			InviteCode string `json:"invite_code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		membership, err := svc.JoinGroup(middleware.AuthUserID(c), input.InviteCode)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusCreated, "join request submitted, awaiting admin approval", membership)
	}
}

// ReviewMembership lets the group admin approve or reject a join request.
func ReviewMembership(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Approve *bool `json:"approve" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		membership, err := svc.ReviewMembership(
			middleware.AuthUserID(c), paramID(c, "id"), paramID(c, "member_id"), *input.Approve)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "membership "+membership.Status, membership)
	}
}

func ListMembers(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := svc.ListMembers(middleware.AuthUserID(c), paramID(c, "id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "members", members)
	}
}

// LinkPayoutAccount attaches a saved bank account to the caller's membership.
func LinkPayoutAccount(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			PayoutAccountID uint `json:"payout_account_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		membership, err := svc.LinkPayoutAccount(middleware.AuthUserID(c), paramID(c, "id"), input.PayoutAccountID)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, "payout account linked", membership)
	}
}

func paramID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(id)
}
