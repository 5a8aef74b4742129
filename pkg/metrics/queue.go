package metrics

import (
	"github.com/rosterhq/roster/pkg/queue"
)

// NewQueueMetrics creates a Prometheus-backed queue.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the worker pool,
// which results in zero overhead.
func NewQueueMetrics() queue.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusQueueMetrics()
}

// newPrometheusQueueMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusQueueMetrics func() queue.Metrics

// RegisterQueueMetricsConstructor registers the Prometheus queue metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterQueueMetricsConstructor(constructor func() queue.Metrics) {
	newPrometheusQueueMetrics = constructor
}
