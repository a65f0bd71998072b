package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/handlers"
)

func registerInvitationCodeRoutes(api *gin.RouterGroup, handler *handlers.InvitationCodeHandler) {
	codes := api.Group("/invitation-codes")
	{
		codes.POST("", handler.Create)
		codes.GET("", handler.List)
		codes.PATCH("/:id", handler.Rename)
		codes.DELETE("/:id", handler.Revoke)
	}
}
