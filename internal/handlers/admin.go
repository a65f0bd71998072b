package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/database"
	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/internal/services"
	appErrors "github.com/aurorasociety/clubhouse/pkg/errors"
	"github.com/aurorasociety/clubhouse/pkg/response"
)

// AdminHandler exposes the admin console: club-wide settings and the full ledger.
type AdminHandler struct {
	db           *gorm.DB
	sponsorships *services.SponsorshipService
}

func NewAdminHandler(db *gorm.DB, sponsorships *services.SponsorshipService) *AdminHandler {
	return &AdminHandler{db: db, sponsorships: sponsorships}
}

// GET /api/admin/referrals
func (h *AdminHandler) ListReferrals(c *gin.Context) {
	// Mirror the service's clamping so the echoed meta matches the page served.
	limit := parseIntQuery(c, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	referrals, total, err := h.sponsorships.ListAll(requestContext(c), limit, offset)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"referrals": referrals}, &response.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

// GET /api/admin/overview
func (h *AdminHandler) Overview(c *gin.Context) {
	ctx := requestContext(c)

	var members, referrals, pending, links, codes int64
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{h.db.WithContext(ctx).Model(&models.Profile{}), &members},
		{h.db.WithContext(ctx).Model(&models.Referral{}), &referrals},
		{h.db.WithContext(ctx).Model(&models.Referral{}).
			Where("sponsor_approved <> ? AND status <> ?", true, models.ReferralStatusRejected), &pending},
		{h.db.WithContext(ctx).Model(&models.ReferralLink{}), &links},
		{h.db.WithContext(ctx).Model(&models.SingleUseInvitationCode{}), &codes},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"members":           members,
		"referrals":         referrals,
		"pending_approvals": pending,
		"referral_links":    links,
		"invitation_codes":  codes,
	})
}

// GET /api/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	ctx := requestContext(c)

	keys := []string{
		database.MaxReferralsSetting,
		database.MaxReferralLinksSetting,
		database.MaxInvitationCodesSetting,
	}

	settings := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := database.GetClubSetting(ctx, h.db, key)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}
		settings[key] = value
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

type updateSettingRequest struct {
	Key   string `json:"key" validate:"required,max=128"`
	Value string `json:"value" validate:"required,max=128"`
}

// PUT /api/admin/settings
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	key := strings.TrimSpace(req.Key)
	switch key {
	case database.MaxReferralsSetting, database.MaxReferralLinksSetting, database.MaxInvitationCodesSetting:
	default:
		response.Error(c, appErrors.NewBadRequest("unknown setting key"))
		return
	}

	if err := database.UpsertClubSetting(requestContext(c), h.db, key, strings.TrimSpace(req.Value)); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "value": strings.TrimSpace(req.Value)})
}
