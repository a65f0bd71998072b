package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/middleware"
	"github.com/aurorasociety/clubhouse/internal/services"
	appErrors "github.com/aurorasociety/clubhouse/pkg/errors"
	"github.com/aurorasociety/clubhouse/pkg/response"
)

// ReferralHandler exposes the sponsor-facing referral endpoints: the primary
// code, the ledger views, and the approval workflow.
type ReferralHandler struct {
	codes        *services.ReferralCodeService
	sponsorships *services.SponsorshipService
}

func NewReferralHandler(codes *services.ReferralCodeService, sponsorships *services.SponsorshipService) *ReferralHandler {
	return &ReferralHandler{codes: codes, sponsorships: sponsorships}
}

// GET /api/referrals/code
func (h *ReferralHandler) GetCode(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.codes.Status(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, status)
}

// GET /api/referrals/code/qr
func (h *ReferralHandler) GetCodeQR(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	png, err := h.codes.QRCode(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/referrals/members
func (h *ReferralHandler) ListMembers(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	members, err := h.sponsorships.ListMembers(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"members": members})
}

// GET /api/referrals/pending
func (h *ReferralHandler) ListPending(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pending, err := h.sponsorships.ListPendingApprovals(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"pending": pending})
}

// GET /api/referrals/stats
func (h *ReferralHandler) Stats(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.sponsorships.Stats(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GET /api/referrals/sponsor
func (h *ReferralHandler) GetSponsor(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sponsor, err := h.sponsorships.GetSponsorOf(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, sponsor)
}

type directAddRequest struct {
	MemberID string `json:"member_id" validate:"required,uuid4"`
}

// POST /api/referrals/members
// Adds an existing member directly, entering the ledger as confirmed.
func (h *ReferralHandler) AddMember(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req directAddRequest
	if !bindAndValidate(c, &req) {
		return
	}

	referral, err := h.sponsorships.CreateFromCode(requestContext(c), services.CreateReferralInput{
		SponsorID:  userID,
		ReferredID: req.MemberID,
		Direct:     true,
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, referral)
}

// POST /api/referrals/:id/approve
func (h *ReferralHandler) Approve(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	referral, err := h.sponsorships.Approve(requestContext(c), userID, c.Param("id"), c.GetBool(middleware.CtxAdminKey))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, referral)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

// POST /api/referrals/:id/reject
func (h *ReferralHandler) Reject(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req rejectRequest
	if c.Request != nil && c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	referral, err := h.sponsorships.Reject(requestContext(c), userID, c.Param("id"), strings.TrimSpace(req.Reason), c.GetBool(middleware.CtxAdminKey))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, referral)
}
