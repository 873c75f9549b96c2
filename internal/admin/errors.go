package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openvis/cloudgate/internal/azure"
	"github.com/openvis/cloudgate/internal/metrics"
	"github.com/openvis/cloudgate/internal/service"
	"github.com/openvis/cloudgate/internal/storage"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeInvalidCredentials indicates an invalid or missing admin token.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodePermissionDenied covers both missing rows and missing access;
	// the two collapse so callers cannot probe which rows exist.
	ErrCodePermissionDenied = "permission_denied"

	// ErrCodeChanged indicates the entity changed concurrently; reload and retry.
	ErrCodeChanged = "changed"

	// ErrCodeValidationFailed indicates a field-level validation failure.
	ErrCodeValidationFailed = "validation_failed"

	// ErrCodeSentinelPreset indicates an attempt to touch the local preset.
	ErrCodeSentinelPreset = "sentinel_preset"

	// ErrCodeNotFound indicates an unknown route element (e.g. proxy operation).
	ErrCodeNotFound = "not_found"

	// ErrCodeProviderError indicates the cloud provider rejected or failed
	// the requested operation.
	ErrCodeProviderError = "provider_error"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	}
	// Encoding errors are not critical since headers are already sent.
	_ = json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// writeMappedError translates domain errors into the REST taxonomy.
func (h *Handler) writeMappedError(w http.ResponseWriter, err error) {
	var validationErr *storage.ValidationError
	var providerErr *azure.APIError

	switch {
	case errors.As(err, &validationErr):
		WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeValidationFailed, validationErr.Error(), validationErr.Field)

	case errors.Is(err, storage.ErrChanged):
		metrics.RecordStaleWrite()
		WriteErrorWithHint(w, http.StatusConflict, ErrCodeChanged,
			"the entity was changed by someone else", "reload the entity and resubmit your change")

	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodePermissionDenied,
			"the entity does not exist or you are not permitted to access it")

	case errors.Is(err, storage.ErrDuplicate):
		WriteError(w, http.StatusConflict, ErrCodeInvalidRequest, "an entity with that value already exists")

	case errors.Is(err, storage.ErrSentinelPreset):
		WriteError(w, http.StatusForbidden, ErrCodeSentinelPreset, "the local preset cannot be modified or deleted")

	case errors.Is(err, service.ErrMissingArgument):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

	case errors.Is(err, azure.ErrOperationFailed),
		errors.Is(err, azure.ErrUnknownResponse),
		errors.As(err, &providerErr):
		WriteError(w, http.StatusBadGateway, ErrCodeProviderError, err.Error())

	default:
		h.logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}
