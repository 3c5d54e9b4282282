package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/saferoute/pkg/metrics"
)

// Readiness reports whether the service can take traffic.
type Readiness interface {
	Ready() bool
}

// HealthHandler handles liveness, readiness and metrics requests.
type HealthHandler struct {
	readiness Readiness
	metrics   http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(r Readiness) *HealthHandler {
	return &HealthHandler{
		readiness: r,
		metrics:   promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /healthz. It answers as long as the process
// serves HTTP.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HandleReady handles GET /readyz: 200 once incident data is loaded.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if h.readiness == nil || !h.readiness.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
}

// HandleMetrics serves the custom Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
