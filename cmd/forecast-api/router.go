// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/boutique-ia/forecast-engine/cmd/forecast-api/handlers"
	"github.com/boutique-ia/forecast-engine/cmd/forecast-api/middleware"
	"github.com/boutique-ia/forecast-engine/internal/app"
	"github.com/boutique-ia/forecast-engine/internal/observability"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, a *app.App) http.Handler {
	cfg := a.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"forecast-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if a.DB != nil {
			if err := a.DB.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"not_ready","reason":"database"}`))
				return
			}
		}
		if !a.Predictions.ModelAvailable() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not_ready","reason":"model"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	var runs handlers.RunLister
	if a.Runs != nil {
		runs = a.Runs
	}

	predictionHandler := handlers.NewPredictionHandler(logger, a.Predictions, runs, cfg.Prediction.DefaultTopN, time.Now)
	reportHandler := handlers.NewReportHandler(logger, a.Analyzer, a.Upstream, handlers.TextLimits{
		Min: cfg.Reports.MinTextLength,
		Max: cfg.Reports.MaxTextLength,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/predictions", func(r chi.Router) {
			r.Get("/", predictionHandler.Predict)
			r.Get("/runs", predictionHandler.ListRuns)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", reportHandler.Generate)
			r.Post("/parse", reportHandler.Parse)
		})
	})

	return r
}
