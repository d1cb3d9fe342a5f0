package routes

import (
	"ajo_ledger/internal/controllers"
	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"
	"ajo_ledger/internal/payments"

	"github.com/gin-gonic/gin"
)

func PayoutRoutes(r *gin.Engine, svc *ledger.Service, gateway payments.Gateway) {
	payouts := r.Group("/payouts")
	payouts.Use(middleware.RequireAuth())
	{
		payouts.POST("/:id/process", controllers.ProcessPayout(svc))
	}

	groups := r.Group("/groups")
	groups.Use(middleware.RequireAuth())
	{
		groups.GET("/:id/payouts", controllers.PayoutHistory(svc))
	}

	accounts := r.Group("/payout-accounts")
	accounts.Use(middleware.RequireAuth())
	{
		accounts.POST("", controllers.CreatePayoutAccount(svc))
		accounts.GET("", controllers.ListPayoutAccounts(svc))
	}

	r.GET("/banks", middleware.RequireAuth(), controllers.ListBanks(gateway))
}
