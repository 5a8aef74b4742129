package metrics

import (
	"github.com/rosterhq/roster/pkg/ingest"
)

// NewIngestMetrics creates a Prometheus-backed ingest.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the orchestrator,
// which results in zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	orch := ingest.New(jobs, candidates, objects, cfg, metrics.NewIngestMetrics())
//
//	// Without metrics (zero overhead)
//	orch := ingest.New(jobs, candidates, objects, cfg, nil)
func NewIngestMetrics() ingest.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusIngestMetrics()
}

// newPrometheusIngestMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusIngestMetrics func() ingest.Metrics

// RegisterIngestMetricsConstructor registers the Prometheus ingest metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterIngestMetricsConstructor(constructor func() ingest.Metrics) {
	newPrometheusIngestMetrics = constructor
}
