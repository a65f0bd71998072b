package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/handlers"
)

func registerReferralLinkRoutes(api *gin.RouterGroup, handler *handlers.ReferralLinkHandler) {
	links := api.Group("/referral-links")
	{
		links.POST("", handler.Create)
		links.GET("", handler.List)
		links.PATCH("/:id", handler.Update)
		links.DELETE("/:id", handler.Delete)
		links.GET("/:id/qr", handler.QRCode)
	}
}
