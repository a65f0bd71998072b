package handlers

import (
	"errors"

	"github.com/aurorasociety/clubhouse/internal/services"
	appErrors "github.com/aurorasociety/clubhouse/pkg/errors"
)

// mapServiceError translates service sentinels into client-facing errors.
// Anything unrecognised surfaces as a 500 with the original error kept for logs.
func mapServiceError(err error) *appErrors.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrSelfSponsorship):
		return appErrors.ErrSelfSponsorship
	case errors.Is(err, services.ErrAlreadySponsored):
		return appErrors.ErrAlreadySponsored
	case errors.Is(err, services.ErrReferralLimitReached),
		errors.Is(err, services.ErrInvitationCodeLimitReached),
		errors.Is(err, services.ErrReferralLinkLimitReached):
		return appErrors.ErrLimitExceeded
	case errors.Is(err, services.ErrReferralNotFound),
		errors.Is(err, services.ErrInvitationCodeNotFound),
		errors.Is(err, services.ErrReferralLinkNotFound),
		errors.Is(err, services.ErrProfileNotFound):
		return appErrors.ErrCodeNotFound
	case errors.Is(err, services.ErrInvitationCodeUsed):
		return appErrors.ErrCodeAlreadyUsed
	case errors.Is(err, services.ErrReferralLinkInactive):
		return appErrors.New("referral.link_inactive", "This referral link is inactive or expired", 410)
	case errors.Is(err, services.ErrInvitationCodeImmutable):
		return appErrors.New("referral.code_already_used", "Redeemed codes cannot be changed", 409)
	case errors.Is(err, services.ErrCannotRevokeCode):
		return appErrors.ErrCannotRevokeLastCode
	case errors.Is(err, services.ErrCodeGenerationExhausted):
		return appErrors.ErrCodeGenerationExhausted
	case errors.Is(err, services.ErrNotRecordOwner):
		return appErrors.ErrForbidden
	case errors.Is(err, services.ErrStorageFailure):
		return appErrors.ErrStorageUnavailable.WithInternal(err)
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}
