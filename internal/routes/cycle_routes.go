package routes

import (
	"ajo_ledger/internal/controllers"
	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

func CycleRoutes(r *gin.Engine, svc *ledger.Service) {
	cycles := r.Group("/groups/:id/cycle")
	cycles.Use(middleware.RequireAuth())
	{
		cycles.POST("/start", controllers.StartCycle(svc))
		cycles.POST("/end", controllers.EndCycle(svc))
		cycles.POST("/settle", controllers.TriggerSettlement(svc))
		cycles.PUT("/order", controllers.SetPayoutOrder(svc))
		cycles.POST("/order/randomize", controllers.RandomizePayoutOrder(svc))
	}
}
