package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/app"
	iauth "github.com/aurorasociety/clubhouse/internal/auth"
	"github.com/aurorasociety/clubhouse/internal/handlers"
	"github.com/aurorasociety/clubhouse/internal/middleware"
	"github.com/aurorasociety/clubhouse/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	limits, err := services.NewLimitService(db)
	if err != nil {
		return nil, err
	}
	sponsorships, err := services.NewSponsorshipService(db, limits)
	if err != nil {
		return nil, err
	}
	generator := services.NewCodeGenerator()
	codes, err := services.NewReferralCodeService(db, sponsorships, generator, cfg.Referrals.BaseURL)
	if err != nil {
		return nil, err
	}
	invitations, err := services.NewInvitationCodeService(db, limits, sponsorships, generator)
	if err != nil {
		return nil, err
	}
	links, err := services.NewReferralLinkService(db, limits, sponsorships, codes, generator, cfg.Referrals.BaseURL)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow))

	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", handlers.Health(db))
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	registration := handlers.NewRegistrationHandler(invitations, links, codes, sponsorships)
	registerPublicRoutes(r, registration)

	requireAuth := middleware.Auth(jwt)
	api := r.Group("/api")
	api.Use(requireAuth)

	registerReferralRoutes(api, handlers.NewReferralHandler(codes, sponsorships))
	registerInvitationCodeRoutes(api, handlers.NewInvitationCodeHandler(invitations))
	registerReferralLinkRoutes(api, handlers.NewReferralLinkHandler(links))
	registerAdminRoutes(api, handlers.NewAdminHandler(db, sponsorships))

	return r, nil
}
