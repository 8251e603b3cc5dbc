package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the dashboard front end runs on a separate origin in dev
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth; auth for /api is enforced by the gateway in
	// front of this service)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/clients/{clientID}", func(r chi.Router) {
			r.Get("/impact", h.HandleActionImpact)
			r.Get("/impact/summary", h.HandleImpactSummary)
			r.Get("/attribution", h.HandleAttribution)
			r.Post("/actions", h.HandleLogBatch)
		})
		r.Delete("/batches/{batchID}", h.HandleUndoBatch)
	})

	return r
}
