package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/cardscan/internal/auth"
	"github.com/ignite/cardscan/internal/export"
)

var defaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"}

// SetupRoutes configures all routes. authManager may be nil, in which case
// nothing is gated.
func SetupRoutes(h *Handlers, hc *HealthChecker, authManager *auth.AuthManager, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(corsOrigins) == 0 {
		corsOrigins = defaultCORSOrigins
	}
	// CORS - allow credentials for auth cookies
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	if hc != nil {
		r.Get("/health", hc.HandleHealth)
		r.Get("/health/live", hc.HandleLiveness)
		r.Get("/health/ready", hc.HandleReadiness)
	}
	r.Get("/", h.HandleHome)

	// Auth routes (no auth required)
	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	r.Group(func(r chi.Router) {
		if authManager != nil {
			r.Use(authManager.RequireAuth)
		}

		// Legacy top-level paths used by the capture client
		r.Post("/scan", h.HandleScan)
		r.Post("/cards", h.HandleCreateCard)

		r.Route("/api", func(r chi.Router) {
			r.Post("/scan", h.HandleScan)

			r.Route("/cards", func(r chi.Router) {
				r.Get("/", h.HandleListCards)
				r.Post("/", h.HandleCreateCard)
				r.Put("/", h.HandleUpdateSelection)
				r.Post("/delete", h.HandleDeleteBatch)
				r.Get("/deleted", h.HandleListDeleted)
				r.Post("/restore/{id}", h.HandleRestoreCard)
				r.Get("/{id}", h.HandleGetCard)
				r.Put("/{id}", h.HandleUpdateCard)
				r.Delete("/{id}", h.HandleDeleteCard)
			})

			r.Get("/deleted", h.HandleListDeleted)
			r.Post("/deleted/restore/{id}", h.HandleRestoreCard)

			r.Get("/export", h.HandleExportQuery)
			r.Get("/export/excel", h.HandleExport(export.FormatXLSX))
			r.Get("/export/csv", h.HandleExport(export.FormatCSV))

			r.Get("/debug/count", h.HandleDebugCount)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "route not found")
	})

	return r
}
