package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zapponejosh/panchang-api/internal/metrics"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET /                         HTML almanac page
//	GET /health                   cache database health
//	GET /metrics                  Prometheus exposition
//	GET /api/v1/panchang          day almanac + timeline layout
//	GET /api/v1/panchang/today    same, for today in the display zone
//	GET /api/v1/panchang/month    per-day highlights for a month
//	GET /api/v1/timeline          parse a single time range
//	GET /api/v1/themes            theme catalog
//	GET /api/v1/languages         supported languages
//	GET /api/v1/fetches           recent generator round trips
func SetupRoutes(handlers *Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware(logger))
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})

	r.Get("/", handlers.Page)
	r.Get("/health", handlers.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/panchang", handlers.GetPanchang)
		r.Get("/panchang/today", handlers.GetToday)
		r.Get("/panchang/month", handlers.GetMonth)
		r.Get("/timeline", handlers.ParseTimeline)
		r.Get("/themes", handlers.ListThemes)
		r.Get("/languages", handlers.ListLanguages)
		r.Get("/fetches", handlers.ListFetches)
	})

	return r
}
