package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Reidentify/internal/hermes"
	"github.com/MikeSquared-Agency/Reidentify/internal/runner"
	"github.com/MikeSquared-Agency/Reidentify/internal/store"
)

func NewRouter(s store.Store, rn *runner.Runner, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	fits := NewFitsHandler(s, rn)
	ranking := NewRankingHandler()
	admin := NewAdminHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fits", fits.Create)
		r.Get("/fits", fits.List)
		r.Get("/fits/{id}", fits.Get)
		r.Get("/fits/{id}/events", fits.Events)
		r.Post("/fits/{id}/cancel", fits.Cancel)

		r.Post("/rank", ranking.Rank)
		r.Post("/fuzzy", ranking.Fuzzy)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

// NewMetricsRouter serves /health and /metrics. h may be nil when events are disabled.
func NewMetricsRouter(h hermes.Client, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "hermes": "disabled"}
		if h != nil {
			status["hermes"] = "connected"
			if !h.Connected() {
				status["hermes"] = "disconnected"
			}
		}
		writeJSON(w, http.StatusOK, status)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
