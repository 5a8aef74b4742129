package metrics

import (
	"github.com/rosterhq/roster/pkg/upload"
)

// NewUploadMetrics creates a Prometheus-backed upload.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the assembler,
// which results in zero overhead.
func NewUploadMetrics() upload.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusUploadMetrics()
}

// newPrometheusUploadMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusUploadMetrics func() upload.Metrics

// RegisterUploadMetricsConstructor registers the Prometheus upload metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterUploadMetricsConstructor(constructor func() upload.Metrics) {
	newPrometheusUploadMetrics = constructor
}
