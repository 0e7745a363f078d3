package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Device metadata
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Put("/", s.handleUpdateDevice)
					r.Delete("/", s.handleDeleteDevice)
					r.Get("/details", s.handleDeviceDetails)
					r.Get("/points", s.handleListDevicePoints)
				})
			})

			// Point metadata and values
			r.Route("/points", func(r chi.Router) {
				r.Post("/", s.handleCreatePoint)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPoint)
					r.Put("/", s.handleUpdatePoint)
					r.Delete("/", s.handleDeletePoint)
					r.Get("/value", s.handleReadPointValue)
					r.Put("/value", s.handleWritePointValue)
				})
			})

			// Plugin inventory
			r.Route("/plugins", func(r chi.Router) {
				r.Get("/", s.handleListPlugins)
				r.Post("/", s.handleInstallPlugin)
			})
			r.Get("/protocols", s.handleListProtocols)

			// WebSocket point value stream (token via query parameter)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"version":   s.version,
		"protocols": s.registry.Count(),
	})
}
