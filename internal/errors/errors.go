// Package errors provides custom error types for the grana data core.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to callers.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Local data layer errors.
var (
	ErrInvalidBundle    = &AppError{Code: "INVALID_BUNDLE", Message: "Data bundle is missing required collections", StatusCode: http.StatusBadRequest}
	ErrSnapshotNotFound = &AppError{Code: "SNAPSHOT_NOT_FOUND", Message: "Snapshot not found", StatusCode: http.StatusNotFound}
	ErrStoreUnavailable = &AppError{Code: "STORE_UNAVAILABLE", Message: "Persistent storage is unavailable", StatusCode: http.StatusServiceUnavailable}
)

// Remote sync errors.
var (
	ErrSyncInFlight    = &AppError{Code: "SYNC_IN_FLIGHT", Message: "A sync operation is already running", StatusCode: http.StatusConflict}
	ErrSyncUnavailable = &AppError{Code: "SYNC_UNAVAILABLE", Message: "Sync endpoint is unreachable", StatusCode: http.StatusBadGateway}
	ErrSyncRejected    = &AppError{Code: "SYNC_REJECTED", Message: "Sync endpoint rejected the request", StatusCode: http.StatusBadGateway}
)
