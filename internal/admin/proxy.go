package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openvis/cloudgate/internal/metrics"
)

// HandleProxy invokes a named provider operation with the service's stored
// credentials. The request body, if any, is the operation's argument map.
// POST /cloud/{serviceID}/proxy/{operation}
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}
	operation := chi.URLParam(r, "operation")

	svc, err := h.storage.GetServiceByID(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	op, found := h.registry.ProxyOp(svc.ServiceType, operation)
	if !found {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "unknown proxy operation: "+operation)
		return
	}

	args := map[string]any{}
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
			return
		}
	}

	creds, err := h.storage.ServiceCredentials(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.proxyTimeout)
	defer cancel()

	start := time.Now()
	result, err := op(ctx, creds, args)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordProviderCall(svc.ServiceType, operation, outcome)

	if err != nil {
		h.logger.Warn("proxy operation failed",
			"service_id", id,
			"service_type", svc.ServiceType,
			"operation", operation,
			"duration", time.Since(start),
			"error", err)
		h.writeMappedError(w, err)
		return
	}

	h.logger.Info("proxy operation completed",
		"service_id", id,
		"service_type", svc.ServiceType,
		"operation", operation,
		"duration", time.Since(start))

	writeJSON(w, http.StatusOK, result)
}
