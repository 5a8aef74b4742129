package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rosterhq/roster/pkg/metrics"
)

func init() {
	metrics.RegisterHTTPMetricsConstructor(NewHTTPMetrics)
}

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics creates a new Prometheus-backed HTTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &httpMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_http_requests_total",
				Help: "Total number of HTTP requests by method, routed pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "roster_http_request_duration_seconds",
				Help: "HTTP request duration by method and routed pattern",
				Buckets: []float64{
					0.005, // status polls
					0.01,  //
					0.025, //
					0.05,  //
					0.1,   //
					0.25,  //
					0.5,   //
					1,     //
					2.5,   // chunk uploads
					5,     //
					10,    //
					30,    // the request timeout
				},
			},
			[]string{"method", "route"},
		),
		inFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

// RecordRequest records a completed request.
func (m *httpMetrics) RecordRequest(method string, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (m *httpMetrics) RecordRequestStart() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (m *httpMetrics) RecordRequestEnd() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
