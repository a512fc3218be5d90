package handler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/logging"
	"github.com/stagehand-music/stagehand/internal/validation"
)

// APIKeyPrefix starts every generated admin API key.
const APIKeyPrefix = "sh_"

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondStandardError writes the standard error envelope.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

// respondError writes an error envelope with a code derived from status.
func respondError(w http.ResponseWriter, status int, message string) {
	code := domain.ErrCodeInternalError
	switch status {
	case http.StatusBadRequest:
		code = domain.ErrCodeInvalidInput
	case http.StatusUnauthorized:
		code = domain.ErrCodeUnauthorized
	case http.StatusNotFound:
		code = domain.ErrCodeResourceNotFound
	case http.StatusConflict:
		code = domain.ErrCodeConflict
	case http.StatusPreconditionFailed:
		code = domain.ErrCodePreconditionFailed
	case http.StatusServiceUnavailable:
		code = domain.ErrCodeBlobUnavailable
	}
	respondStandardError(w, status, code, message, "", nil)
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		logging.Ctx(r.Context()).Debug().Str("fields", verrs.Fields()).Msg("request failed validation")
		respondValidationErrors(w, verrs)
	case errors.Is(err, domain.ErrUnknownEquipment):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeUnknownEquipment, err.Error(), "", nil)
	case errors.Is(err, domain.ErrNotFound):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found", "", nil)
	case errors.Is(err, domain.ErrInsufficientSpace):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeInsufficientSpace, err.Error(), "", nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeResourceAlreadyExists, "already exists", "", nil)
	case errors.Is(err, domain.ErrConflict):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeConflict, err.Error(), "", nil)
	case errors.Is(err, domain.ErrPreconditionFailed):
		respondStandardError(w, http.StatusPreconditionFailed, domain.ErrCodePreconditionFailed, err.Error(), "", nil)
	case errors.Is(err, domain.ErrInvalidInput):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), "", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		respondStandardError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized", "", nil)
	case errors.Is(err, domain.ErrBlobUnavailable):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("blob storage unavailable")
		respondStandardError(w, http.StatusServiceUnavailable, domain.ErrCodeBlobUnavailable, "blob storage unavailable", "", nil)
	case errors.Is(err, domain.ErrPersistenceFailure):
		logging.Ctx(r.Context()).Error().Err(err).Msg("persistence failure")
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodePersistenceFailure, "failed to save changes", "", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error", "", nil)
	}
}

// decodeJSON decodes JSON from the request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// decodeAndValidate decodes the body into v and runs its struct tag checks.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		handleError(w, r, err)
		return false
	}
	return true
}

// generateID generates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// generateAPIKey generates a new random API key.
func generateAPIKey() (key string, hash string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}

	key = APIKeyPrefix + hex.EncodeToString(bytes)
	hash = hashKey(key)
	prefix = key[:len(APIKeyPrefix)+8]

	return key, hash, prefix, nil
}

// hashKey creates a SHA-256 hash of an API key.
// API keys are high-entropy random strings, so a fast hash is enough for lookups.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// respondValidationError writes a validation error for one field.
func respondValidationError(w http.ResponseWriter, field, value, message string) {
	var errs validation.ValidationErrors
	errs.Add(field, value, message)
	respondValidationErrors(w, errs)
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	field := ""
	if len(errs) > 0 {
		field = errs[0].Field
	}
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError, errs.Error(), field,
		map[string]any{"errors": errs})
}
