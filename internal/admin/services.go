package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openvis/cloudgate/internal/storage"
)

// TableRequest is the paged-listing request shape used by the -table
// endpoints, as sent by the data-table widgets of the admin UI.
type TableRequest struct {
	Draw   int    `json:"draw"`
	Start  int    `json:"start"`
	Length int    `json:"length"`
	Search string `json:"search"`
}

// TableResponse is the corresponding paged-listing response.
type TableResponse struct {
	Draw            int `json:"draw"`
	RecordsTotal    int `json:"recordsTotal"`
	RecordsFiltered int `json:"recordsFiltered"`
	Data            any `json:"data"`
}

// HandleServicesTable returns one page of configured cloud services.
// POST /cloud_services-table
func (h *Handler) HandleServicesTable(w http.ResponseWriter, r *http.Request) {
	var req TableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	services, total, filtered, err := h.storage.ListServicesPage(r.Context(), storage.ListQuery{
		Offset: req.Start,
		Limit:  req.Length,
		Search: req.Search,
	})
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TableResponse{
		Draw:            req.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            services,
	})
}

// HandleGetService returns one service row with its consistency hash.
// GET /cloud/{serviceID}
func (h *Handler) HandleGetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	svc, err := h.storage.GetServiceByID(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, svc)
}

// HandleUpdateService applies a consistency-checked credential update.
// PUT /cloud/{serviceID}, body includes originalHash.
func (h *Handler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	var patch storage.CloudServicePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}
	if patch.OriginalHash == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "originalHash is required")
		return
	}

	if err := h.storage.UpdateServiceWithConsistencyCheck(r.Context(), id, &patch); err != nil {
		h.writeMappedError(w, err)
		return
	}

	svc, err := h.storage.GetServiceByID(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, svc)
}

// CredentialDescription is the form-rendering descriptor of a service type.
type CredentialDescription struct {
	Fields   []serviceField `json:"fields"`
	HelpHTML string         `json:"helpHTML"`
}

type serviceField struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// HandleServiceDescription returns the credential field descriptor of a
// service's type, for rendering the edit form.
// GET /cloud/{serviceID}/description
func (h *Handler) HandleServiceDescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	svc, err := h.storage.GetServiceByID(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	desc := h.registry.Descriptor(svc.ServiceType)
	fields := make([]serviceField, len(desc.CredentialFields))
	for i, f := range desc.CredentialFields {
		fields[i] = serviceField{Name: f.Name, Type: f.Type, Label: f.Label}
	}

	writeJSON(w, http.StatusOK, CredentialDescription{Fields: fields, HelpHTML: desc.HelpHTML})
}

// ValidateRequest is the body of the credential validation endpoint.
type ValidateRequest struct {
	ServiceType      string            `json:"service_type"`
	CredentialValues map[string]string `json:"credential_values"`
}

// HandleValidateServices echoes per-field presence markers: each declared
// field that is missing or empty appears in the response as {field: {}}.
// POST /cloud_services-validate
func (h *Handler) HandleValidateServices(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	markers := make(map[string]struct{})
	for _, field := range h.registry.CredentialFields(req.ServiceType) {
		if req.CredentialValues[field.Name] == "" {
			markers[field.Name] = struct{}{}
		}
	}

	writeJSON(w, http.StatusOK, markers)
}

// pathID parses an integer URL parameter, writing the error response itself
// on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
