package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/payments"
)

type gatewayEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference    string `json:"reference"`
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
	} `json:"data"`
}

// GatewayWebhook receives charge/transfer outcome events pushed by the
// payment gateway. The signature is checked against the raw body before the
// payload is trusted; event application is idempotent, so redelivery is
// harmless. Always answers 200 for verified events — the gateway retries
// anything else.
func GatewayWebhook(svc *ledger.Service, webhookSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		signature := c.GetHeader("x-paystack-signature")
		if !payments.ValidSignature(body, signature, webhookSecret) {
			logrus.Warn("webhook rejected: bad signature")
			c.Status(http.StatusUnauthorized)
			return
		}

		var event gatewayEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		switch event.Event {
		case "charge.success":
			err = svc.ApplyChargeEvent(event.Data.Reference, true)
		case "charge.failed":
			err = svc.ApplyChargeEvent(event.Data.Reference, false)
		case "transfer.success":
			err = svc.ApplyTransferEvent(event.Data.TransferCode, true)
		case "transfer.failed", "transfer.reversed":
			err = svc.ApplyTransferEvent(event.Data.TransferCode, false)
		default:
			// Unknown events are acknowledged and ignored.
		}
		if err != nil {
			logrus.WithError(err).WithField("event", event.Event).Warn("webhook event application failed")
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "event received"})
	}
}
