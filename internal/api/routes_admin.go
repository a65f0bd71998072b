package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/handlers"
	"github.com/aurorasociety/clubhouse/internal/middleware"
)

func registerAdminRoutes(api *gin.RouterGroup, handler *handlers.AdminHandler) {
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/referrals", handler.ListReferrals)
		admin.GET("/overview", handler.Overview)
		admin.GET("/settings", handler.GetSettings)
		admin.PUT("/settings", handler.UpdateSetting)
	}
}
