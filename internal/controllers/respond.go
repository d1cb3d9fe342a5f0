package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"ajo_ledger/internal/ledger"
)

// Every endpoint answers with the same envelope: success flag, a
// human-readable message, and a typed data payload.
func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrNoActiveCycle):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrAlreadyContributed),
		errors.Is(err, ledger.ErrDuplicatePayment),
		errors.Is(err, ledger.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrInsufficientApprovedMembers),
		errors.Is(err, ledger.ErrNoPayoutAccount):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrExternalService):
		status = http.StatusBadGateway
	default:
		// Internal detail stays in the log, not the response.
		logrus.WithError(err).Error("unhandled ledger error")
		message = "internal error"
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}
