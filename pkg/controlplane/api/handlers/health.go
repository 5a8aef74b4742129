package handlers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker reports whether a dependency can serve requests.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// NamedCheck couples a dependency name ("datastore", "queue") with its
// checker.
type NamedCheck struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Are all dependencies reachable?
//   - Dependency health: Per-dependency status with latency
type HealthHandler struct {
	checks []NamedCheck
}

// NewHealthHandler creates a new health handler. Checks run in the
// order given and their order is preserved in responses.
func NewHealthHandler(checks ...NamedCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// startTime anchors the uptime reported by the liveness probe.
var startTime = time.Now()

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint is designed
// for Kubernetes liveness probes and should always succeed as long as the
// HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(startTime)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "roster",
		"started_at": startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK when every registered dependency passes its healthcheck,
// 503 Service Unavailable on the first failure.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Checker.Healthcheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(check.Name+": "+err.Error()))
			return
		}
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"checks": len(h.checks),
	}))
}

// DependencyHealth represents the health status of a single dependency.
type DependencyHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Dependencies handles GET /health/dependencies - detailed dependency health.
//
// Probes run concurrently, so the endpoint's latency is that of the slowest
// dependency rather than the sum. Returns 200 OK if all dependencies are
// healthy, 503 Service Unavailable if any is not.
func (h *HealthHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make([]DependencyHealth, len(h.checks))

	var g errgroup.Group
	for i, check := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := check.Checker.Healthcheck(ctx)

			health := DependencyHealth{
				Name:    check.Name,
				Latency: time.Since(start).String(),
			}
			if err != nil {
				health.Status = "unhealthy"
				health.Error = err.Error()
			} else {
				health.Status = "healthy"
			}

			results[i] = health
			return nil
		})
	}
	_ = g.Wait()

	allHealthy := true
	for _, health := range results {
		if health.Status != "healthy" {
			allHealthy = false
			break
		}
	}

	if allHealthy {
		writeJSON(w, http.StatusOK, healthyResponse(results))
	} else {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(results))
	}
}
