/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Member-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/calendar/events", func(r chi.Router) {
			r.Get("/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.ListMonth)
			r.Post("/", h.CreateRecord)
			r.Get("/{id}", h.GetRecord)
			r.Patch("/{id}", h.PatchRecord)
			r.Delete("/{id}", h.DeleteRecord)
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/balances", h.AllBalances)
			r.Get("/{id}/balance", h.MemberBalance)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/feed/sync", h.SyncFeed)
		})
	})

	return r
}
