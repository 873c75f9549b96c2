package admin

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/openvis/cloudgate/internal/metrics"
	"github.com/openvis/cloudgate/internal/storage"
)

// TokenAuthMiddleware validates bearer tokens for the admin API.
//
// The bootstrap token from the environment is accepted only while the
// admin_tokens table is empty; once a real token exists the bootstrap token
// is locked out.
func (h *Handler) TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			metrics.RecordAuthFailure("missing_token")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "missing bearer token")
			return
		}

		ctx := r.Context()

		if h.bootstrapToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(h.bootstrapToken)) == 1 {
			count, err := h.storage.CountAdminTokens(ctx)
			if err != nil {
				h.logger.Error("failed to check admin tokens", "error", err)
				WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
				return
			}
			if count > 0 {
				metrics.RecordAuthFailure("bootstrap_locked")
				WriteError(w, http.StatusForbidden, ErrCodeInvalidCredentials,
					"bootstrap token is locked; use an admin token")
				return
			}
			h.logger.Debug("admin request via bootstrap token")
			next.ServeHTTP(w, r)
			return
		}

		adminToken, err := h.storage.VerifyAdminToken(ctx, token)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				metrics.RecordAuthFailure("invalid_token")
				h.logger.Warn("invalid admin token attempt", "remote_addr", r.RemoteAddr)
				WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid token")
				return
			}
			h.logger.Error("failed to verify admin token", "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}

		h.logger.Debug("admin request", "token_name", adminToken.Name)
		next.ServeHTTP(w, r)
	})
}

// extractBearerToken reads the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
