package metrics

import (
	"github.com/rosterhq/roster/pkg/objstore"
)

// NewObjstoreMetrics creates a Prometheus-backed objstore.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to objstore.WithMetrics,
// which leaves the store uninstrumented at zero overhead.
func NewObjstoreMetrics() objstore.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusObjstoreMetrics()
}

// newPrometheusObjstoreMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusObjstoreMetrics func() objstore.Metrics

// RegisterObjstoreMetricsConstructor registers the Prometheus object store
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterObjstoreMetricsConstructor(constructor func() objstore.Metrics) {
	newPrometheusObjstoreMetrics = constructor
}
