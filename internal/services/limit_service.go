package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/database"
	"github.com/aurorasociety/clubhouse/pkg/logger"
)

// Fallbacks applied when a limit key is absent or unparseable.
const (
	DefaultMaxReferrals       = 10
	DefaultMaxReferralLinks   = 5
	DefaultMaxInvitationCodes = 2
)

// LimitService reads the administrator-configured per-sponsor caps from the
// club settings store. It never writes; administrators mutate the store
// through their own console.
type LimitService struct {
	db *gorm.DB
}

// NewLimitService constructs a LimitService.
func NewLimitService(db *gorm.DB) (*LimitService, error) {
	if db == nil {
		return nil, errors.New("limit service: db is required")
	}
	return &LimitService{db: db}, nil
}

// MaxReferrals returns the cap on sponsored members per sponsor.
func (s *LimitService) MaxReferrals(ctx context.Context) int {
	return s.lookup(ctx, database.MaxReferralsSetting, DefaultMaxReferrals)
}

// MaxReferralLinks returns the cap on referral links per sponsor.
func (s *LimitService) MaxReferralLinks(ctx context.Context) int {
	return s.lookup(ctx, database.MaxReferralLinksSetting, DefaultMaxReferralLinks)
}

// MaxInvitationCodes returns the cap on active single-use codes per sponsor.
func (s *LimitService) MaxInvitationCodes(ctx context.Context) int {
	return s.lookup(ctx, database.MaxInvitationCodesSetting, DefaultMaxInvitationCodes)
}

func (s *LimitService) lookup(ctx context.Context, key string, fallback int) int {
	value, err := database.GetClubSetting(ensureContext(ctx), s.db, key)
	if err != nil {
		logger.WithModule("limits").Warn("setting lookup failed, using fallback",
			zap.String("key", key), zap.Int("fallback", fallback), zap.Error(err))
		return fallback
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
