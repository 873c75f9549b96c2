package admin

import (
	"encoding/json"
	"net/http"

	"github.com/openvis/cloudgate/internal/service"
	"github.com/openvis/cloudgate/internal/storage"
)

// PresetTypeInfo is one row of the preset-type listing.
type PresetTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// HandlePresetTypes lists the preset types the service's type offers.
// POST /cloud/{serviceID}/preset-types
func (h *Handler) HandlePresetTypes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	svc, err := h.storage.GetServiceByID(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	types := h.registry.PresetTypes(svc.ServiceType)
	infos := make([]PresetTypeInfo, 0, len(types))
	for name, pt := range types {
		infos = append(infos, PresetTypeInfo{Type: name, Description: pt.Description})
	}

	writeJSON(w, http.StatusOK, infos)
}

// HandlePresetsTable returns one page of the service's presets.
// POST /cloud/{serviceID}/presets-table
func (h *Handler) HandlePresetsTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	var req TableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	// The owning service must exist; a missing one reads as permission denied.
	if _, err := h.storage.GetServiceByID(r.Context(), id); err != nil {
		h.writeMappedError(w, err)
		return
	}

	presets, total, filtered, err := h.storage.ListPresetsPage(r.Context(), id, storage.ListQuery{
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
		Data:            presets,
	})
}

// HandleGetPreset returns one preset with its consistency hash.
// GET /cloud/{serviceID}/preset/{presetID}
func (h *Handler) HandleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.resolvePreset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

// HandleUpdatePreset applies a consistency-checked preset update.
// PUT /cloud/{serviceID}/preset/{presetID}
func (h *Handler) HandleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.resolvePreset(w, r)
	if !ok {
		return
	}

	var patch storage.PresetPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}
	if patch.OriginalHash == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "originalHash is required")
		return
	}

	if err := h.storage.UpdatePresetWithConsistencyCheck(r.Context(), preset.ID, &patch); err != nil {
		h.writeMappedError(w, err)
		return
	}

	updated, err := h.storage.GetPresetByID(r.Context(), preset.ID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleDeletePreset removes a preset. The local sentinel preset is refused.
// DELETE /cloud/{serviceID}/preset/{presetID}
func (h *Handler) HandleDeletePreset(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.resolvePreset(w, r)
	if !ok {
		return
	}

	if err := h.storage.RemovePreset(r.Context(), preset.ID); err != nil {
		h.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CreatePresetRequest is the body of the preset creation endpoint.
type CreatePresetRequest struct {
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	PresetType          string            `json:"preset_type"`
	SpecificationValues map[string]string `json:"specification_values"`
}

// HandleCreatePreset stores a new preset under the service.
// POST /cloud/{serviceID}/preset
func (h *Handler) HandleCreatePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	var req CreatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	preset := &storage.Preset{
		Service:             id,
		Name:                req.Name,
		Description:         req.Description,
		PresetType:          req.PresetType,
		SpecificationValues: req.SpecificationValues,
	}

	presetID, err := h.storage.CreatePreset(r.Context(), preset)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	created, err := h.storage.GetPresetByID(r.Context(), presetID)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// PresetDescription is the form-rendering descriptor of one preset type.
type PresetDescription struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Fields      []service.Field `json:"fields"`
	HelpHTML    string          `json:"helpHTML"`
}

// HandlePresetDescriptions returns the full field schemas of every preset
// type the service's type offers, for rendering the preset editor.
// GET /cloud/{serviceID}/preset-descriptions
func (h *Handler) HandlePresetDescriptions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	svc, err := h.storage.GetServiceByID(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}

	types := h.registry.PresetTypes(svc.ServiceType)
	descs := make([]PresetDescription, 0, len(types))
	for name, pt := range types {
		descs = append(descs, PresetDescription{
			Type:        name,
			Description: pt.Description,
			Fields:      pt.Fields,
			HelpHTML:    pt.HelpHTML,
		})
	}

	writeJSON(w, http.StatusOK, descs)
}

// resolvePreset loads the preset named in the URL and checks it belongs to
// the service named in the URL. A preset reached through the wrong service
// reads as permission denied, same as a missing one.
func (h *Handler) resolvePreset(w http.ResponseWriter, r *http.Request) (*storage.Preset, bool) {
	serviceID, ok := pathID(w, r, "serviceID")
	if !ok {
		return nil, false
	}
	presetID, ok := pathID(w, r, "presetID")
	if !ok {
		return nil, false
	}

	preset, err := h.storage.GetPresetByID(r.Context(), presetID)
	if err != nil {
		h.writeMappedError(w, err)
		return nil, false
	}
	if preset.Service != serviceID {
		h.writeMappedError(w, storage.ErrNotFound)
		return nil, false
	}
	return preset, true
}
