package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// secretFields are JSON keys whose values are replaced before debug logging.
var secretFields = map[string]bool{
	"clientSecret":  true,
	"client_secret": true,
	"access_token":  true,
}

// RequestLogging logs one line per request at info level, with method, path,
// status, duration and request ID. At debug level the decoded request payload
// is also logged, with secret fields masked; the credential endpoints carry
// secrets, so the raw body is never emitted.
func RequestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger.Enabled(r.Context(), slog.LevelDebug) {
				logRequestPayload(logger, r)
			}

			rec := &loggingRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", GetRequestID(r.Context()),
			)
		})
	}
}

// logRequestPayload emits the decoded request body at debug level after
// masking. The body is restored for the handler. Payloads that are not JSON
// objects are skipped rather than logged raw.
func logRequestPayload(logger *slog.Logger, r *http.Request) {
	if r.Body == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read request body", "error", err)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return
	}

	logger.Debug("request payload",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", GetRequestID(r.Context()),
		"body", MaskSecrets(payload),
	)
}

// MaskSecrets replaces the values of known secret keys in a decoded JSON
// object, for safe debug logging of request payloads.
func MaskSecrets(payload map[string]any) map[string]any {
	masked := make(map[string]any, len(payload))
	for k, v := range payload {
		switch {
		case secretFields[k]:
			masked[k] = "***"
		case isNested(v):
			masked[k] = MaskSecrets(v.(map[string]any))
		default:
			masked[k] = v
		}
	}
	return masked
}

func isNested(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

type loggingRecorder struct {
	http.ResponseWriter
	status int
}

func (r *loggingRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
