package mockarm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openvis/cloudgate/internal/azure"
)

// handleToken implements the client-credentials exchange.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.rejectAuth {
		s.writeError(w, http.StatusUnauthorized, "invalid_client", "client authentication rejected")
		return
	}

	if r.PostFormValue("grant_type") != "client_credentials" {
		s.writeError(w, http.StatusBadRequest, "unsupported_grant_type", "only client_credentials is supported")
		return
	}
	if r.PostFormValue("scope") == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_scope", "scope is required")
		return
	}
	if r.PostFormValue("client_id") != s.state.clientID || r.PostFormValue("client_secret") != s.state.clientSecret {
		s.writeError(w, http.StatusUnauthorized, "invalid_client", "unknown client or bad secret")
		return
	}

	s.state.issuedToken = uuid.New().String()
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.state.issuedToken,
		"token_type":   "Bearer",
		"expires_in":   3599,
	})
}

// requireBearer checks the Authorization header against the last issued token.
// Must be called with the state lock held.
func (s *Server) requireBearer(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if s.state.issuedToken == "" || auth != "Bearer "+s.state.issuedToken {
		s.writeError(w, http.StatusUnauthorized, "AuthenticationFailed", "missing or stale bearer token")
		return false
	}
	return true
}

// handleListSubscriptions serves GET /subscriptions with nextLink paging.
func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.requireBearer(w, r) {
		return
	}

	items := make([]any, len(s.state.subscriptions))
	for i, sub := range s.state.subscriptions {
		items[i] = sub
	}
	s.writePage(w, r, items)
}

// handleListLocations serves GET /subscriptions/{sub}/locations.
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.requireBearer(w, r) {
		return
	}

	sub := chi.URLParam(r, "sub")
	locs := s.state.locations[sub]
	items := make([]any, len(locs))
	for i, loc := range locs {
		items[i] = loc
	}
	s.writePage(w, r, items)
}

// handleListVMSizes serves the per-location VM size listing.
func (s *Server) handleListVMSizes(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.requireBearer(w, r) {
		return
	}

	key := chi.URLParam(r, "sub") + "/" + chi.URLParam(r, "loc")
	sizes := s.state.vmSizes[key]
	items := make([]any, len(sizes))
	for i, size := range sizes {
		items[i] = size
	}
	s.writePage(w, r, items)
}

// writePage writes one page of items, chaining a nextLink when more remain.
// Must be called with the state lock held.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, items []any) {
	skip := 0
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}

	end := len(items)
	pageSize := s.state.pageSize
	if pageSize > 0 && skip+pageSize < end {
		end = skip + pageSize
	}
	if skip > len(items) {
		skip = len(items)
	}

	payload := map[string]any{"value": items[skip:end]}
	if end < len(items) {
		q := r.URL.Query()
		q.Set("skip", strconv.Itoa(end))
		payload["nextLink"] = s.baseURL(r) + r.URL.Path + "?" + q.Encode()
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleCreateResourceGroup serves PUT on a resource group. Depending on the
// configured mode it answers with a direct provisioningState, a bare body, or
// the async polling headers.
func (s *Server) handleCreateResourceGroup(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.requireBearer(w, r) {
		return
	}

	sub := chi.URLParam(r, "sub")
	name := chi.URLParam(r, "name")

	var body struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Location == "" {
		s.writeError(w, http.StatusBadRequest, "LocationRequired", "resource group location is required")
		return
	}

	id := fmt.Sprintf("/subscriptions/%s/resourcegroups/%s", sub, name)
	s.state.resourceGroups[id] = azure.ResourceGroup{ID: id, Name: name, Location: body.Location}

	s.answerMutation(w, r, http.StatusCreated, map[string]any{
		"id":       id,
		"name":     name,
		"location": body.Location,
	})
}

// handleDeleteResourceGroup serves DELETE on a resource group.
func (s *Server) handleDeleteResourceGroup(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.requireBearer(w, r) {
		return
	}

	id := fmt.Sprintf("/subscriptions/%s/resourcegroups/%s", chi.URLParam(r, "sub"), chi.URLParam(r, "name"))
	delete(s.state.resourceGroups, id)

	s.answerMutation(w, r, http.StatusAccepted, map[string]any{"id": id})
}

// answerMutation writes a mutating call's initial response according to the
// configured signaling mode. Must be called with the state lock held.
func (s *Server) answerMutation(w http.ResponseWriter, r *http.Request, status int, body map[string]any) {
	switch {
	case s.state.omitSignals:
		writeJSON(w, status, body)

	case s.state.directResponse != "":
		body["provisioningState"] = s.state.directResponse
		writeJSON(w, status, body)

	default:
		op := &operation{
			id:       uuid.New().String(),
			statuses: append([]string(nil), s.state.operationScript...),
		}
		if len(op.statuses) == 0 {
			op.statuses = []string{"Succeeded"}
		}
		s.state.operations[op.id] = op
		s.state.lastOpID = op.id

		w.Header().Set("Azure-Asyncoperation", s.baseURL(r)+"/operations/"+op.id)
		w.Header().Set("Retry-After", "0")
		writeJSON(w, status, body)
	}
}

// handleOperationStatus serves the status endpoint of a started operation,
// walking its scripted sequence.
func (s *Server) handleOperationStatus(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if !s.requireBearer(w, r) {
		return
	}

	op, ok := s.state.operations[chi.URLParam(r, "id")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "OperationNotFound", "no such operation")
		return
	}

	idx := op.polls
	if idx >= len(op.statuses) {
		idx = len(op.statuses) - 1
	}
	op.polls++

	writeJSON(w, http.StatusOK, map[string]any{"status": op.statuses[idx]})
}

// writeError writes the provider's error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response already started
	json.NewEncoder(w).Encode(v)
}
