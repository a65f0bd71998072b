package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/handlers"
)

func registerPublicRoutes(r *gin.Engine, handler *handlers.RegistrationHandler) {
	// Short link used on printed material and social posts.
	r.GET("/r/:linkCode", handler.TrackAndRedirect)

	public := r.Group("/api/public")
	{
		public.POST("/redeem/invitation-code", handler.RedeemInvitationCode)
		public.POST("/redeem/referral-link", handler.RedeemReferralLink)
		public.POST("/redeem/referral-code", handler.RedeemReferralCode)
		public.GET("/sponsor-preview", handler.SponsorPreview)
	}
}
