package routes

import (
	"ajo_ledger/internal/controllers"
	"ajo_ledger/internal/ledger"

	"github.com/gin-gonic/gin"
)

// WebhookRoutes are unauthenticated: the gateway signs the body instead.
func WebhookRoutes(r *gin.Engine, svc *ledger.Service, webhookSecret string) {
	r.POST("/webhooks/gateway", controllers.GatewayWebhook(svc, webhookSecret))
}
