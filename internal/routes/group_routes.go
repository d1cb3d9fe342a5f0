package routes

import (
	"ajo_ledger/internal/controllers"
	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

func GroupRoutes(r *gin.Engine, svc *ledger.Service) {
	groups := r.Group("/groups")
	groups.Use(middleware.RequireAuth())
	{
		groups.POST("", controllers.CreateGroup(svc))
		groups.GET("", controllers.ListMyGroups(svc))
		groups.GET("/:id", controllers.GetGroup(svc))
		groups.POST("/join", controllers.JoinGroup(svc))
		groups.GET("/:id/members", controllers.ListMembers(svc))
		groups.PATCH("/:id/members/:member_id", controllers.ReviewMembership(svc))
		groups.POST("/:id/payout-account", controllers.LinkPayoutAccount(svc))
	}
}
