package handler

import (
	"errors"
	"net/http"

	"gallery-service/internal/access"
	apperrors "gallery-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

// MapToPublicError maps internal errors to public-facing HTTP status codes and messages
// This prevents information disclosure by providing consistent, generic error messages
func MapToPublicError(err error) (int, string) {
	status, msg := http.StatusInternalServerError, msgInternalError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, msg = http.StatusNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		status, msg = http.StatusForbidden, "access denied"
	case errors.Is(err, apperrors.ErrConflict):
		status, msg = http.StatusConflict, "resource conflict"
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrBadRequest),
		errors.Is(err, apperrors.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperrors.ErrInvalidImage):
		status, msg = http.StatusUnprocessableEntity, "invalid image"
	case errors.Is(err, apperrors.ErrInactive),
		errors.Is(err, apperrors.ErrExpired),
		errors.Is(err, apperrors.ErrQuotaExhausted):
		status, msg = http.StatusForbidden, msgShareLinkUnavailable
	case errors.Is(err, apperrors.ErrProcessingTimeout):
		status, msg = http.StatusGatewayTimeout, "processing timed out"
	case errors.Is(err, apperrors.ErrStorageUploadFailure):
		status, msg = http.StatusBadGateway, "storage backend failure"
	case errors.Is(err, apperrors.ErrConfiguration),
		errors.Is(err, apperrors.ErrCodeGenerationExhausted):
		status, msg = http.StatusServiceUnavailable, msgUnavailable
	default:
		// Never expose internal errors to clients
		return status, msg
	}

	// Client errors carry a caller-facing message worth keeping.
	var appErr *apperrors.AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}
	return status, msg
}

// RespondWithMappedError responds with a mapped error, preventing information disclosure
func RespondWithMappedError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return handleHTTPError(c, he)
	}

	status, msg := MapToPublicError(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("request failed (masked as %d): %v", status, err)
	}
	return respondError(c, status, msg)
}

// respondDenial renders a gate refusal. Only the password and invitation
// prompts are distinguishable; inactive, expired and exhausted links share
// one generic body.
func respondDenial(c echo.Context, denial *access.Denial, notFoundMsg, unavailableMsg string) error {
	switch {
	case denial.Reason == access.ReasonNotFound:
		return respondError(c, http.StatusNotFound, notFoundMsg)
	case denial.RequiresPassword():
		msg := msgPasswordRequired
		if denial.Reason == access.ReasonPasswordInvalid {
			msg = msgPasswordInvalid
		}
		return respondPrompt(c, msg, denial.Reason, jsonKeyRequiresPassword)
	case denial.RequiresInvitation():
		msg := msgInvitationRequired
		if denial.Reason == access.ReasonInvitationInvalid {
			msg = msgInvitationInvalid
		}
		return respondPrompt(c, msg, denial.Reason, jsonKeyRequiresInvitation)
	default:
		return respondError(c, http.StatusForbidden, unavailableMsg)
	}
}

// accessOutcome is the metrics label for a gate result.
func accessOutcome(err error) string {
	if err == nil {
		return outcomeGranted
	}
	var denial *access.Denial
	if errors.As(err, &denial) {
		return string(denial.Reason)
	}
	return outcomeError
}
