package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource already exists")
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation error")
	ErrInvalidInput   = errors.New("invalid input")

	// Access decisions
	ErrInactive           = errors.New("resource inactive")
	ErrExpired            = errors.New("resource expired")
	ErrQuotaExhausted     = errors.New("access quota exhausted")
	ErrPasswordRequired   = errors.New("password required")
	ErrPasswordInvalid    = errors.New("password invalid")
	ErrInvitationRequired = errors.New("invitation required")
	ErrInvitationInvalid  = errors.New("invitation invalid")

	// Upload and storage
	ErrInvalidImage         = errors.New("invalid image")
	ErrStorageUploadFailure = errors.New("storage upload failure")
	ErrProcessingTimeout    = errors.New("processing timeout")

	ErrCodeGenerationExhausted = errors.New("code generation exhausted")
	ErrConfiguration           = errors.New("configuration error")
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Err: ErrConflict}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

func Validation(msg string) *AppError {
	return &AppError{Code: "VALIDATION", Message: msg, Err: ErrValidation}
}

func InvalidImage(msg string) *AppError {
	return &AppError{Code: "INVALID_IMAGE", Message: msg, Err: ErrInvalidImage}
}

// StorageUploadFailure keeps the backend error for server-side logs while
// classifying it for callers.
func StorageUploadFailure(msg string, err error) *AppError {
	return &AppError{Code: "STORAGE_UPLOAD_FAILURE", Message: msg, Err: fmt.Errorf("%w: %v", ErrStorageUploadFailure, err)}
}

func ProcessingTimeout(msg string) *AppError {
	return &AppError{Code: "PROCESSING_TIMEOUT", Message: msg, Err: ErrProcessingTimeout}
}

func CodeGenerationExhausted(attempts int) *AppError {
	return &AppError{
		Code:    "CODE_GENERATION_EXHAUSTED",
		Message: fmt.Sprintf("could not generate a unique code after %d attempts", attempts),
		Err:     ErrCodeGenerationExhausted,
	}
}

func Configuration(msg string) *AppError {
	return &AppError{Code: "CONFIGURATION_ERROR", Message: msg, Err: ErrConfiguration}
}
