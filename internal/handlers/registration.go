package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/services"
	"github.com/aurorasociety/clubhouse/pkg/response"
)

// RegistrationHandler exposes the public endpoints new members hit before and
// during sign-up: link click tracking and code redemption.
type RegistrationHandler struct {
	invitations  *services.InvitationCodeService
	links        *services.ReferralLinkService
	codes        *services.ReferralCodeService
	sponsorships *services.SponsorshipService
}

func NewRegistrationHandler(
	invitations *services.InvitationCodeService,
	links *services.ReferralLinkService,
	codes *services.ReferralCodeService,
	sponsorships *services.SponsorshipService,
) *RegistrationHandler {
	return &RegistrationHandler{
		invitations:  invitations,
		links:        links,
		codes:        codes,
		sponsorships: sponsorships,
	}
}

// GET /r/:linkCode
// Records the click and redirects the visitor to the registration page.
func (h *RegistrationHandler) TrackAndRedirect(c *gin.Context) {
	linkCode := c.Param("linkCode")

	link, err := h.links.RecordClick(requestContext(c), linkCode, services.ClickContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	c.Redirect(http.StatusFound, h.links.LinkURL(link.LinkCode))
}

type redeemRequest struct {
	Code     string `json:"code" validate:"required,min=8,max=64,sharecode"`
	MemberID string `json:"member_id" validate:"required,uuid4"`
}

// POST /api/public/redeem/invitation-code
func (h *RegistrationHandler) RedeemInvitationCode(c *gin.Context) {
	var req redeemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	referral, err := h.invitations.Redeem(requestContext(c), req.Code, req.MemberID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, referral)
}

// POST /api/public/redeem/referral-link
func (h *RegistrationHandler) RedeemReferralLink(c *gin.Context) {
	var req redeemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	referral, err := h.links.RecordRegistration(requestContext(c), req.Code, req.MemberID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, referral)
}

// POST /api/public/redeem/referral-code
// The primary code is reusable; redemption resolves the owning sponsor and
// opens a pending ledger entry.
func (h *RegistrationHandler) RedeemReferralCode(c *gin.Context) {
	var req redeemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	sponsor, err := h.codes.FindSponsorByCode(ctx, req.Code)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	referral, err := h.sponsorships.CreateFromCode(ctx, services.CreateReferralInput{
		SponsorID:  sponsor.ID,
		ReferredID: req.MemberID,
		Code:       req.Code,
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, referral)
}

// GET /api/public/sponsor-preview?code=...
// Lets the registration page show who will sponsor the applicant.
func (h *RegistrationHandler) SponsorPreview(c *gin.Context) {
	sponsor, err := h.codes.FindSponsorByCode(requestContext(c), c.Query("code"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"sponsor": gin.H{
			"first_name": sponsor.FirstName,
			"last_name":  sponsor.LastName,
			"avatar_url": sponsor.AvatarURL,
		},
	})
}
