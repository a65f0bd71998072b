package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurorasociety/clubhouse/internal/middleware"
	"github.com/aurorasociety/clubhouse/internal/services"
	appErrors "github.com/aurorasociety/clubhouse/pkg/errors"
	"github.com/aurorasociety/clubhouse/pkg/response"
)

// InvitationCodeHandler exposes single-use invitation code management.
type InvitationCodeHandler struct {
	codes *services.InvitationCodeService
}

func NewInvitationCodeHandler(codes *services.InvitationCodeService) *InvitationCodeHandler {
	return &InvitationCodeHandler{codes: codes}
}

type createInvitationCodeRequest struct {
	Label string `json:"label" validate:"omitempty,max=128"`
}

// POST /api/invitation-codes
func (h *InvitationCodeHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createInvitationCodeRequest
	if c.Request != nil && c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	code, err := h.codes.Create(requestContext(c), userID, req.Label)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusCreated, code)
}

// GET /api/invitation-codes
func (h *InvitationCodeHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	codes, err := h.codes.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"codes": codes})
}

type renameInvitationCodeRequest struct {
	Label string `json:"label" validate:"max=128"`
}

// PATCH /api/invitation-codes/:id
func (h *InvitationCodeHandler) Rename(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req renameInvitationCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	code, err := h.codes.Rename(requestContext(c), userID, c.Param("id"), req.Label)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, code)
}

// DELETE /api/invitation-codes/:id
// Revocation is logical: the code row survives for the audit trail.
func (h *InvitationCodeHandler) Revoke(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	code, err := h.codes.Revoke(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}
	response.Success(c, http.StatusOK, code)
}
