package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// Referral and sponsorship failures surfaced by the core services.
var (
	ErrLimitExceeded = &AppError{
		Code:       "referral.limit_exceeded",
		Message:    "The configured limit for this resource has been reached",
		StatusCode: http.StatusConflict,
	}

	ErrAlreadySponsored = &AppError{
		Code:       "referral.already_sponsored",
		Message:    "This member already has a sponsor",
		StatusCode: http.StatusConflict,
	}

	ErrSelfSponsorship = &AppError{
		Code:       "referral.self_sponsorship",
		Message:    "A member cannot sponsor themselves",
		StatusCode: http.StatusBadRequest,
	}

	ErrCodeNotFound = &AppError{
		Code:       "referral.code_not_found",
		Message:    "No matching referral or invitation code was found",
		StatusCode: http.StatusNotFound,
	}

	ErrCodeAlreadyUsed = &AppError{
		Code:       "referral.code_already_used",
		Message:    "This invitation code has already been redeemed",
		StatusCode: http.StatusConflict,
	}

	ErrCodeGenerationExhausted = &AppError{
		Code:       "referral.code_generation_exhausted",
		Message:    "Could not generate a unique code, please retry",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrCannotRevokeLastCode = &AppError{
		Code:       "referral.cannot_revoke_last_code",
		Message:    "The last usable invitation code cannot be revoked",
		StatusCode: http.StatusConflict,
	}

	ErrStorageUnavailable = &AppError{
		Code:       "STORAGE_UNAVAILABLE",
		Message:    "Storage backend is temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
