package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrNoAPIKeys          = errors.New("no API keys configured")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrBlobUnavailable    = errors.New("blob storage not configured")
	ErrPreconditionFailed = errors.New("precondition failed")

	// Rack layout errors.
	ErrUnknownEquipment   = errors.New("unknown equipment")
	ErrInsufficientSpace  = errors.New("insufficient rack space")
	ErrPersistenceFailure = errors.New("persistence failure")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound      = "RESOURCE_NOT_FOUND"
	ErrCodeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeValidationError       = "VALIDATION_ERROR"
	ErrCodePreconditionFailed    = "PRECONDITION_FAILED"
	ErrCodeConflict              = "CONFLICT"
	ErrCodeUnknownEquipment      = "UNKNOWN_EQUIPMENT"
	ErrCodeInsufficientSpace     = "INSUFFICIENT_SPACE"
	ErrCodePersistenceFailure    = "PERSISTENCE_FAILURE"
	ErrCodeBlobUnavailable       = "BLOB_UNAVAILABLE"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}
