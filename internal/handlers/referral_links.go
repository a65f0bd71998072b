package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/middleware"
	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/internal/services"
	appErrors "github.com/aurorasociety/clubhouse/pkg/errors"
	"github.com/aurorasociety/clubhouse/pkg/response"
)

// ReferralLinkHandler exposes shareable referral link management.
type ReferralLinkHandler struct {
	links *services.ReferralLinkService
}

func NewReferralLinkHandler(links *services.ReferralLinkService) *ReferralLinkHandler {
	return &ReferralLinkHandler{links: links}
}

type createReferralLinkRequest struct {
	Label        string     `json:"label" validate:"omitempty,max=128"`
	IsFamilyLink bool       `json:"is_family_link"`
	AllowedPages []string   `json:"allowed_pages" validate:"omitempty,dive,max=256"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

type referralLinkDTO struct {
	models.ReferralLink
	URL string `json:"url"`
}

func (h *ReferralLinkHandler) dto(link models.ReferralLink) referralLinkDTO {
	return referralLinkDTO{ReferralLink: link, URL: h.links.LinkURL(link.LinkCode)}
}

// POST /api/referral-links
func (h *ReferralLinkHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createReferralLinkRequest
	if c.Request != nil && c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	link, err := h.links.Create(requestContext(c), services.CreateReferralLinkInput{
		SponsorID:    userID,
		Label:        req.Label,
		IsFamilyLink: req.IsFamilyLink,
		AllowedPages: req.AllowedPages,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, h.dto(*link))
}

// GET /api/referral-links
func (h *ReferralLinkHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	links, err := h.links.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	dtos := make([]referralLinkDTO, 0, len(links))
	for _, link := range links {
		dtos = append(dtos, h.dto(link))
	}
	response.Success(c, http.StatusOK, gin.H{"links": dtos})
}

type updateReferralLinkRequest struct {
	Label    *string `json:"label" validate:"omitempty,max=128"`
	IsActive *bool   `json:"is_active"`
}

// PATCH /api/referral-links/:id
func (h *ReferralLinkHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateReferralLinkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	linkID := c.Param("id")

	var link *models.ReferralLink
	var err error
	if req.Label != nil {
		link, err = h.links.Rename(ctx, userID, linkID, *req.Label)
		if err != nil {
			response.Error(c, mapServiceError(err))
			return
		}
	}
	if req.IsActive != nil {
		link, err = h.links.ToggleActive(ctx, userID, linkID, *req.IsActive)
		if err != nil {
			response.Error(c, mapServiceError(err))
			return
		}
	}
	if link == nil {
		response.Error(c, appErrors.NewBadRequest("nothing to update"))
		return
	}

	response.Success(c, http.StatusOK, h.dto(*link))
}

// DELETE /api/referral-links/:id
func (h *ReferralLinkHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.links.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/referral-links/:id/qr
func (h *ReferralLinkHandler) QRCode(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	png, err := h.links.QRCode(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
