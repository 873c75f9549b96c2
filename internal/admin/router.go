package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openvis/cloudgate/internal/metrics"
	"github.com/openvis/cloudgate/internal/middleware"
)

// Router builds the admin HTTP router. Health probes are public; everything
// else requires a bearer token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging(h.logger))
	r.Use(metrics.Middleware)

	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Group(func(r chi.Router) {
		r.Use(h.TokenAuthMiddleware)

		r.Post("/cloud_services-table", h.HandleServicesTable)
		r.Post("/cloud_services-validate", h.HandleValidateServices)

		r.Route("/cloud/{serviceID}", func(r chi.Router) {
			r.Get("/", h.HandleGetService)
			r.Put("/", h.HandleUpdateService)
			r.Get("/description", h.HandleServiceDescription)

			r.Post("/preset-types", h.HandlePresetTypes)
			r.Post("/presets-table", h.HandlePresetsTable)
			r.Get("/preset-descriptions", h.HandlePresetDescriptions)
			r.Post("/preset", h.HandleCreatePreset)

			r.Route("/preset/{presetID}", func(r chi.Router) {
				r.Get("/", h.HandleGetPreset)
				r.Put("/", h.HandleUpdatePreset)
				r.Delete("/", h.HandleDeletePreset)
			})

			r.Post("/proxy/{operation}", h.HandleProxy)
		})

		r.Route("/api", func(r chi.Router) {
			r.Post("/loglevel", h.HandleSetLogLevel)
			r.Get("/tokens", h.HandleListTokens)
			r.Post("/tokens", h.HandleCreateToken)
			r.Delete("/tokens/{tokenID}", h.HandleDeleteToken)
		})
	})

	return r
}
