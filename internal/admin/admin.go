// Package admin exposes the REST surface of cloudgate: cloud service
// credential management, presets and proxy-operation invocation.
package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/openvis/cloudgate/internal/service"
	"github.com/openvis/cloudgate/internal/storage"
)

// defaultProxyTimeout bounds a proxy operation, including any long-running
// operation polling it entails. Callers wanting a longer wait resubmit.
const defaultProxyTimeout = 60 * time.Second

// Storage is the persistence interface required by the admin handlers.
type Storage interface {
	Ping(ctx context.Context) error

	// Cloud services
	GetServiceByID(ctx context.Context, id int64) (*storage.CloudService, error)
	ListServicesPage(ctx context.Context, q storage.ListQuery) ([]*storage.CloudService, int, int, error)
	UpdateServiceWithConsistencyCheck(ctx context.Context, id int64, patch *storage.CloudServicePatch) error
	ServiceCredentials(ctx context.Context, id int64) (map[string]string, error)

	// Presets
	GetPresetByID(ctx context.Context, id int64) (*storage.Preset, error)
	ListPresetsPage(ctx context.Context, serviceID int64, q storage.ListQuery) ([]*storage.Preset, int, int, error)
	CreatePreset(ctx context.Context, preset *storage.Preset) (int64, error)
	UpdatePresetWithConsistencyCheck(ctx context.Context, id int64, patch *storage.PresetPatch) error
	RemovePreset(ctx context.Context, id int64) error

	// Admin tokens
	CreateAdminToken(ctx context.Context, name, token string) (int64, error)
	ListAdminTokens(ctx context.Context) ([]*storage.AdminToken, error)
	DeleteAdminToken(ctx context.Context, id int64) error
	VerifyAdminToken(ctx context.Context, token string) (*storage.AdminToken, error)
	CountAdminTokens(ctx context.Context) (int, error)
}

// Handler provides the admin endpoints.
type Handler struct {
	storage        Storage
	registry       *service.Registry
	logger         *slog.Logger
	logLevel       *slog.LevelVar
	bootstrapToken string
	proxyTimeout   time.Duration
}

// NewHandler creates an admin handler. bootstrapToken is accepted as a bearer
// token only while no admin tokens are stored.
func NewHandler(store Storage, registry *service.Registry, bootstrapToken string, logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}

	return &Handler{
		storage:        store,
		registry:       registry,
		logger:         logger,
		logLevel:       logLevel,
		bootstrapToken: bootstrapToken,
		proxyTimeout:   defaultProxyTimeout,
	}
}
