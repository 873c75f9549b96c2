// Package mockarm provides a mock Azure Resource Manager style control plane
// for testing: identity endpoint, nextLink-paginated listings and the
// async-operation protocol with scripted status sequences.
package mockarm

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/openvis/cloudgate/internal/azure"
)

// operation is one in-flight long-running operation with a scripted sequence
// of statuses; each status poll consumes one entry, the last entry repeats.
type operation struct {
	id       string
	statuses []string
	polls    int
}

// state is the mutable world of the mock provider.
type state struct {
	mu sync.Mutex

	clientID     string
	clientSecret string
	issuedToken  string

	subscriptions  []azure.Subscription
	locations      map[string][]azure.Location
	vmSizes        map[string][]azure.VMSize
	resourceGroups map[string]azure.ResourceGroup

	operations map[string]*operation
	lastOpID   string

	pageSize        int
	operationScript []string
	rejectAuth      bool

	nextErrorStatus  int
	nextErrorCode    string
	nextErrorMessage string
	nextErrorCount   int

	directResponse  string // non-empty: answer mutations with this provisioningState, no polling headers
	omitSignals     bool   // answer mutations with a bare body and no async signaling
}

// Server is the mock control plane. Tests use New/URL/Close; cmd/mockarm
// mounts Handler on a real listener.
type Server struct {
	state      *state
	router     chi.Router
	httpServer *httptest.Server
}

// New creates a mock server listening on a random local port.
func New() *Server {
	s := newUnstarted()
	s.httpServer = httptest.NewServer(s.router)
	return s
}

// newUnstarted builds the server without a listener.
func newUnstarted() *Server {
	s := &Server{
		state: &state{
			clientID:       "mock-client",
			clientSecret:   "mock-secret",
			locations:      make(map[string][]azure.Location),
			vmSizes:        make(map[string][]azure.VMSize),
			resourceGroups: make(map[string]azure.ResourceGroup),
			operations:     make(map[string]*operation),
			pageSize:       100,
		},
	}

	r := chi.NewRouter()
	r.Use(s.injectFailures)
	r.Post("/{tenant}/oauth2/v2.0/token", s.handleToken)
	r.Get("/subscriptions", s.handleListSubscriptions)
	r.Get("/subscriptions/{sub}/locations", s.handleListLocations)
	r.Get("/subscriptions/{sub}/providers/Microsoft.Compute/locations/{loc}/vmSizes", s.handleListVMSizes)
	r.Put("/subscriptions/{sub}/resourcegroups/{name}", s.handleCreateResourceGroup)
	r.Delete("/subscriptions/{sub}/resourcegroups/{name}", s.handleDeleteResourceGroup)
	r.Get("/operations/{id}", s.handleOperationStatus)
	s.router = r

	return s
}

// NewHandler returns a server without its own listener, for mounting on an
// externally managed http.Server.
func NewHandler() *Server {
	return newUnstarted()
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// URL returns the base URL of the test listener.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the test listener down.
func (s *Server) Close() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

// baseURL is the absolute prefix used when minting nextLink and operation URLs.
func (s *Server) baseURL(r *http.Request) string {
	if s.httpServer != nil {
		return s.httpServer.URL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// SetCredentials sets the client id/secret the token endpoint accepts.
func (s *Server) SetCredentials(clientID, clientSecret string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.clientID = clientID
	s.state.clientSecret = clientSecret
}

// SetPageSize sets how many items a listing page carries before chaining a
// nextLink.
func (s *Server) SetPageSize(n int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.pageSize = n
}

// AddSubscription registers a subscription.
func (s *Server) AddSubscription(id, displayName string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.subscriptions = append(s.state.subscriptions, azure.Subscription{
		ID:             "/subscriptions/" + id,
		SubscriptionID: id,
		DisplayName:    displayName,
		State:          "Enabled",
	})
}

// AddLocation registers a location under a subscription.
func (s *Server) AddLocation(subscriptionID, name, displayName string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.locations[subscriptionID] = append(s.state.locations[subscriptionID], azure.Location{
		ID:          "/subscriptions/" + subscriptionID + "/locations/" + name,
		Name:        name,
		DisplayName: displayName,
	})
}

// AddVMSize registers a VM size under a subscription+location pair.
func (s *Server) AddVMSize(subscriptionID, location, name string, cores, memoryMB int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	key := subscriptionID + "/" + location
	s.state.vmSizes[key] = append(s.state.vmSizes[key], azure.VMSize{
		Name:          name,
		NumberOfCores: cores,
		MemoryInMB:    memoryMB,
	})
}

// SetOperationScript sets the status sequence returned by polls of the next
// started operations. Empty script means mutations complete without polling.
func (s *Server) SetOperationScript(statuses ...string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.operationScript = statuses
}

// SetDirectProvisioningState makes mutating calls answer with the given
// provisioningState in the body and no polling headers.
func (s *Server) SetDirectProvisioningState(state string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.directResponse = state
}

// OmitAsyncSignals makes mutating calls answer with a bare body: no polling
// headers and no provisioningState. Exercises the fail-fast path.
func (s *Server) OmitAsyncSignals(omit bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.omitSignals = omit
}

// SetNextError schedules the next count requests, on any route, to answer
// with the given status and error envelope instead of being handled.
func (s *Server) SetNextError(status int, code, message string, count int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.nextErrorStatus = status
	s.state.nextErrorCode = code
	s.state.nextErrorMessage = message
	s.state.nextErrorCount = count
}

// injectFailures consumes scheduled errors before routing.
func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.state.mu.Lock()
		if s.state.nextErrorCount > 0 {
			s.state.nextErrorCount--
			status, code, message := s.state.nextErrorStatus, s.state.nextErrorCode, s.state.nextErrorMessage
			s.state.mu.Unlock()
			s.writeError(w, status, code, message)
			return
		}
		s.state.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// RejectAuth makes the token endpoint reject every exchange.
func (s *Server) RejectAuth(reject bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.rejectAuth = reject
}

// PollCount returns how many status polls the given operation received.
func (s *Server) PollCount(operationID string) int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if op, ok := s.state.operations[operationID]; ok {
		return op.polls
	}
	return 0
}

// LastOperationID returns the ID of the most recently started operation, or
// the empty string.
func (s *Server) LastOperationID() string {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.lastOpID
}
