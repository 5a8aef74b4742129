package metrics

import (
	"time"
)

// HTTPMetrics provides observability for the HTTP API.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead. The API middleware calls it once per request.
type HTTPMetrics interface {
	// RecordRequest records a completed request with its routed pattern
	// (e.g. "/candidates/job/{jobId}/status"), final status code and
	// duration.
	RecordRequest(method string, route string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart()

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd()
}

// NewHTTPMetrics creates a Prometheus-backed HTTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() HTTPMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusHTTPMetrics()
}

// newPrometheusHTTPMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusHTTPMetrics func() HTTPMetrics

// RegisterHTTPMetricsConstructor registers the Prometheus HTTP metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterHTTPMetricsConstructor(constructor func() HTTPMetrics) {
	newPrometheusHTTPMetrics = constructor
}
