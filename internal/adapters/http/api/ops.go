package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/pkg/metrics"
)

// HealthHandler serves the process metrics as the liveness probe.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a handler over the metrics registry.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// StatsProvider reports counters of the running service.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler handles GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}

// JobsHandler serves the job catalogue in global priority order.
type JobsHandler struct {
	deps Dependencies
}

func NewJobsHandler(deps Dependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

type jobsResponse struct {
	Jobs []gear.Job `json:"jobs"`
}

// HandleJobs handles GET /jobs.
func (h *JobsHandler) HandleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, jobsResponse{Jobs: h.deps.Jobs()})
}
