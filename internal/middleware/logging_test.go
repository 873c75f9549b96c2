package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMaskSecrets verifies secret keys are masked, including nested objects.
func TestMaskSecrets(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"name":         "Azure",
		"clientSecret": "hunter2",
		"credential_values": map[string]any{
			"client_secret": "hunter2",
			"access_token":  "tok",
			"clientId":      "visible",
		},
	}

	masked := MaskSecrets(payload)

	if masked["clientSecret"] != "***" {
		t.Errorf("top-level secret not masked: %v", masked["clientSecret"])
	}
	nested := masked["credential_values"].(map[string]any)
	if nested["client_secret"] != "***" || nested["access_token"] != "***" {
		t.Errorf("nested secrets not masked: %v", nested)
	}
	if nested["clientId"] != "visible" || masked["name"] != "Azure" {
		t.Errorf("non-secret values must pass through: %v", masked)
	}

	// The input map is left untouched.
	if payload["clientSecret"] != "hunter2" {
		t.Errorf("masking must not mutate the input")
	}
}

// TestRequestLoggingDebugPayload verifies the request body is logged at debug
// level with secrets masked, while the handler still receives it untouched.
func TestRequestLoggingDebugPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen string
	handler := RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body in handler: %v", err)
		}
		seen = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPut, "/cloud/1",
		strings.NewReader(`{"name":"Azure","credentialValues":{"clientSecret":"hunter2"}}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(seen, "hunter2") {
		t.Fatalf("handler must receive the untouched body, got %q", seen)
	}

	out := buf.String()
	if !strings.Contains(out, "request payload") {
		t.Errorf("expected a debug payload line: %q", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked into the log: %q", out)
	}
	if !strings.Contains(out, "***") {
		t.Errorf("expected a masked value in the log: %q", out)
	}
}

// TestRequestLoggingInfoSkipsPayload verifies bodies stay out of the log
// above debug level.
func TestRequestLoggingInfoSkipsPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPut, "/cloud/1",
		strings.NewReader(`{"clientSecret":"hunter2"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "request payload") || strings.Contains(out, "hunter2") {
		t.Errorf("payload must not be logged at info level: %q", out)
	}
}

// TestRequestLogging verifies one line per request with status and path.
func TestRequestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/cloud/1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if !strings.Contains(line, "status=418") {
		t.Errorf("expected the downstream status in the log line: %q", line)
	}
	if !strings.Contains(line, "path=/cloud/1") {
		t.Errorf("expected the path in the log line: %q", line)
	}
}
