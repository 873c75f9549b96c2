package azure

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError represents a structured error response from the control plane.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("azure: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("azure: HTTP %d: %s", e.StatusCode, e.Message)
}

// Sentinel errors for the async-operation protocol and token exchange.
var (
	// ErrNoAccessToken is returned when the identity endpoint answered 200
	// but the response carried no access_token.
	ErrNoAccessToken = errors.New("azure: token response missing access_token")

	// ErrOperationFailed is returned when the provider reports a terminal
	// Failed state. Never retried automatically; resubmission is a caller
	// decision.
	ErrOperationFailed = errors.New("azure: operation has failed")

	// ErrUnknownResponse is returned when a mutating call offered neither a
	// polling hint, a direct terminal state nor a caller-supplied fallback.
	// Retrying an ambiguous response risks duplicate provisioning, so this is
	// fatal for the call.
	ErrUnknownResponse = errors.New("azure: unknown response (no async operation headers or provisioning state)")

	// ErrTooManyPages is returned when a paginated listing exceeds the page cap.
	ErrTooManyPages = errors.New("azure: pagination exceeded page limit")
)

// parseError converts a non-2xx provider response into an *APIError. The
// provider wraps errors as {"error": {"code": ..., "message": ...}}; anything
// else is preserved verbatim in Message.
func parseError(statusCode int, body []byte) error {
	var wrapped struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Code != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       wrapped.Error.Code,
			Message:    wrapped.Error.Message,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    string(body),
	}
}
