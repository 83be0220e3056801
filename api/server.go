/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counters and latency
  5. CORS:       Cross-origin requests for the scheduling frontend

ROUTE GROUPS:
  /api/users/*          Roster, week views and the day editor
  /api/departments/*    Department list and per-department weeks
  /api/compliance/*     Dry-run checks of draft weeks
  /api/recommendations  Relief candidates for an over-ceiling week
  /api/jobs/*           Notification job runs and manual triggers
  /api/outbox           Queued notification messages
  /api/scenarios/*      Demo data
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. The editor honours the caller's role through
  the X-Actor-ID header only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/shift-engine/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/weeks/{week}", h.GetUserWeek)
			r.Put("/{id}/weeks/{week}/days/{slot}", h.SaveDay)
			r.Delete("/{id}/weeks/{week}/days/{slot}", h.DeleteDay)
		})

		// Department routes
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.ListDepartments)
			r.Get("/{dept}/weeks/{week}", h.GetDepartmentWeek)
		})

		r.Post("/compliance/check", h.CheckCompliance)
		r.Get("/recommendations", h.GetRecommendations)

		// Job routes
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Get("/runs", h.ListJobRuns)
			r.Post("/{name}/run", h.RunJob)
		})
		r.Get("/outbox", h.ListOutbox)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
