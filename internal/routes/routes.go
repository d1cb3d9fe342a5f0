package routes

import (
	"github.com/gin-gonic/gin"

	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/payments"
)

func SetupRouter(svc *ledger.Service, gateway payments.Gateway, webhookSecret string) *gin.Engine {
	r := gin.Default()

	AuthRoutes(r)
	GroupRoutes(r, svc)
	ContributionRoutes(r, svc)
	CycleRoutes(r, svc)
	PayoutRoutes(r, svc, gateway)
	WebhookRoutes(r, svc, webhookSecret)

	return r
}
