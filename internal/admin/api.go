package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LogLevelRequest is the body of the log level endpoint.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes the process log level at runtime.
// POST /api/loglevel
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	var level slog.Level
	switch strings.ToLower(req.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"unknown log level: "+req.Level, "one of: debug, info, warn, error")
		return
	}

	h.logLevel.Set(level)
	h.logger.Info("log level changed", "level", level.String())
	writeJSON(w, http.StatusOK, map[string]string{"level": strings.ToLower(req.Level)})
}

// CreateTokenRequest is the body of the admin token creation endpoint.
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// TokenInfo is one row of the token listing. The token value itself is only
// returned at creation time; it is stored hashed.
type TokenInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Token     string    `json:"token,omitempty"`
}

// HandleCreateToken mints a new admin token and returns its plaintext once.
// POST /api/tokens
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	token := uuid.NewString()
	id, err := h.storage.CreateAdminToken(r.Context(), req.Name, token)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	h.logger.Info("admin token created", "token_name", req.Name)
	writeJSON(w, http.StatusCreated, TokenInfo{
		ID:        id,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
		Token:     token,
	})
}

// HandleListTokens lists admin tokens without their hashes.
// GET /api/tokens
func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.storage.ListAdminTokens(r.Context())
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	infos := make([]TokenInfo, len(tokens))
	for i, t := range tokens {
		infos[i] = TokenInfo{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
	}

	writeJSON(w, http.StatusOK, infos)
}

// HandleDeleteToken revokes an admin token.
// DELETE /api/tokens/{tokenID}
func (h *Handler) HandleDeleteToken(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tokenID")
	if !ok {
		return
	}

	if err := h.storage.DeleteAdminToken(r.Context(), id); err != nil {
		h.writeMappedError(w, err)
		return
	}

	h.logger.Info("admin token deleted", "token_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
