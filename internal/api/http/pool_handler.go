package http

import (
	"net/http"

	"jobpool/internal/metrics"
	"jobpool/internal/pool"

	"go.opentelemetry.io/otel"
)

// StatsSource reports pool bookkeeping. *pool.Pool implements it.
type StatsSource interface {
	Stats() pool.Stats
}

// PoolHandler serves GET /pool/stats.
type PoolHandler struct {
	pool    StatsSource
	metrics *metrics.Metrics
}

func NewPoolHandler(p StatsSource, m *metrics.Metrics) *PoolHandler {
	return &PoolHandler{pool: p, metrics: m}
}

func (h *PoolHandler) RegisterRoutes(mux *http.ServeMux) {
	route := func(*http.Request) string { return "/pool/stats" }
	mux.Handle("/pool/stats", instrument(otel.Tracer("jobpool-api"), h.metrics, route, http.HandlerFunc(h.handleStats)))
}

func (h *PoolHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.pool.Stats())
}
