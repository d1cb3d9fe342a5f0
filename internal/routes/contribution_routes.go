package routes

import (
	"ajo_ledger/internal/controllers"
	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

func ContributionRoutes(r *gin.Engine, svc *ledger.Service) {
	contributions := r.Group("/groups/:id/contributions")
	contributions.Use(middleware.RequireAuth())
	{
		contributions.POST("", controllers.RecordContribution(svc))
		contributions.GET("", controllers.ContributionHistory(svc))
		contributions.POST("/charge", controllers.InitializeCharge(svc))
		contributions.GET("/charge/:reference/verify", controllers.VerifyCharge(svc))
		contributions.GET("/progress", controllers.GetRoundProgress(svc))
	}
}
