// Package api wires the HTTP surface: public read endpoints for the site,
// admin endpoints behind API key or OIDC authentication, health and metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stagehand-music/stagehand/internal/api/handler"
	"github.com/stagehand-music/stagehand/internal/api/middleware"
	"github.com/stagehand-music/stagehand/internal/auth"
	"github.com/stagehand-music/stagehand/internal/blob"
	"github.com/stagehand-music/stagehand/internal/config"
	"github.com/stagehand-music/stagehand/internal/logging"
	"github.com/stagehand-music/stagehand/internal/metrics"
	"github.com/stagehand-music/stagehand/internal/service"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// OIDC bundles the pieces needed for admin sign-in. A nil *OIDC disables
// the /auth routes and session cookies.
type OIDC struct {
	Provider  *auth.OIDCProvider
	Sessions  *auth.SessionManager
	States    *auth.StateStore
	LogoutURL string
}

// Deps are the collaborators the router needs.
type Deps struct {
	Store  storage.Storage
	Layout *service.LayoutService
	// Blobs may be nil, in which case uploads return 503.
	Blobs  blob.Store
	Config *config.Config
	OIDC   *OIDC
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	store := deps.Store
	layout := deps.Layout
	if layout == nil {
		layout = service.NewLayoutService(store)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.Server.PublicOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", metrics.Handler())
	}

	bands := handler.NewBandHandler(store)
	venues := handler.NewVenueHandler(store)
	events := handler.NewEventHandler(store)
	blog := handler.NewBlogHandler(store)
	racks := handler.NewRackHandler(store, layout)
	equipment := handler.NewEquipmentHandler(store, layout)
	uploads := handler.NewUploadHandler(deps.Blobs, cfg.Blob.MaxUploadBytes)
	keys := handler.NewAPIKeyHandler(store)

	var sessions *auth.SessionManager
	if deps.OIDC != nil {
		sessions = deps.OIDC.Sessions
	}
	requireAdmin := middleware.Auth(store, cfg.Auth.BootstrapAPIKey, sessions)

	if deps.OIDC != nil {
		authHandler := handler.NewAuthHandler(deps.OIDC.Provider, deps.OIDC.Sessions, deps.OIDC.States, deps.OIDC.LogoutURL)
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.With(requireAdmin).Get("/me", handler.Me)
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Public reads for the site
		r.Group(func(r chi.Router) {
			if cfg.Server.PublicRateLimit > 0 {
				r.Use(middleware.NewRateLimiter(cfg.Server.PublicRateLimit, cfg.Server.PublicRateBurst).Handler)
			}

			r.Get("/bands", bands.List)
			r.Get("/bands/{id}", bands.Get)
			r.Get("/venues", venues.List)
			r.Get("/venues/{id}", venues.Get)
			r.Get("/events", events.List)
			r.Get("/events/{id}", events.Get)
			r.Get("/blog", blog.List)
			r.Get("/blog/{id}", blog.Get)
			r.Get("/racks", racks.List)
			r.Get("/racks/{rack_id}", racks.Get)
			r.Get("/racks/{rack_id}/summary", racks.Summary)
			r.Get("/racks/{rack_id}/equipment", equipment.List)
			r.Get("/racks/{rack_id}/equipment/{id}", equipment.Get)
			r.Get("/equipment", equipment.ListAll)
		})

		// Admin writes
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/me", handler.Me)

			r.Post("/keys", keys.Create)
			r.Get("/keys", keys.List)
			r.Delete("/keys/{id}", keys.Delete)

			r.Post("/bands", bands.Create)
			r.Put("/bands/{id}", bands.Update)
			r.Delete("/bands/{id}", bands.Delete)

			r.Post("/venues", venues.Create)
			r.Put("/venues/{id}", venues.Update)
			r.Delete("/venues/{id}", venues.Delete)

			r.Post("/events", events.Create)
			r.Put("/events/{id}", events.Update)
			r.Delete("/events/{id}", events.Delete)

			r.Post("/blog", blog.Create)
			r.Put("/blog/{id}", blog.Update)
			r.Delete("/blog/{id}", blog.Delete)

			r.Post("/racks", racks.Create)
			r.Put("/racks/{rack_id}", racks.Update)
			r.Delete("/racks/{rack_id}", racks.Delete)

			r.Post("/racks/{rack_id}/equipment", equipment.Create)
			r.Put("/racks/{rack_id}/equipment/{id}", equipment.Update)
			r.Delete("/racks/{rack_id}/equipment/{id}", equipment.Delete)
			r.Post("/racks/{rack_id}/equipment/{id}/move", equipment.Move)

			r.Post("/upload", uploads.Upload)
		})
	})

	return r
}
