package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/handlers"
)

func registerReferralRoutes(api *gin.RouterGroup, handler *handlers.ReferralHandler) {
	referrals := api.Group("/referrals")
	{
		referrals.GET("/code", handler.GetCode)
		referrals.GET("/code/qr", handler.GetCodeQR)
		referrals.GET("/members", handler.ListMembers)
		referrals.POST("/members", handler.AddMember)
		referrals.GET("/pending", handler.ListPending)
		referrals.GET("/stats", handler.Stats)
		referrals.GET("/sponsor", handler.GetSponsor)
		referrals.POST("/:id/approve", handler.Approve)
		referrals.POST("/:id/reject", handler.Reject)
	}
}
