package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rosterhq/roster/pkg/metrics"
	"github.com/rosterhq/roster/pkg/queue"
)

func init() {
	metrics.RegisterQueueMetricsConstructor(NewQueueMetrics)
}

// queueMetrics is the Prometheus implementation of queue.Metrics.
type queueMetrics struct {
	deliveries prometheus.Counter
	attempts   prometheus.Histogram
	settled    *prometheus.CounterVec
	pending    prometheus.Gauge
	inflight   prometheus.Gauge
}

// NewQueueMetrics creates a new Prometheus-backed queue.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewQueueMetrics() queue.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &queueMetrics{
		deliveries: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "roster_queue_deliveries_total",
				Help: "Total number of messages handed to a handler",
			},
		),
		attempts: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "roster_queue_delivery_attempt",
				Help:    "Distribution of per-delivery attempt numbers",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
		),
		settled: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_queue_settled_total",
				Help: "Total number of finished deliveries by outcome",
			},
			[]string{"outcome"}, // "acked", "retried", "exhausted"
		),
		pending: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_queue_pending",
				Help: "Messages waiting for delivery, including backoff",
			},
		),
		inflight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_queue_inflight",
				Help: "Messages currently being processed",
			},
		),
	}
}

// Delivered records one handler invocation.
func (m *queueMetrics) Delivered(attempt int) {
	if m == nil {
		return
	}
	m.deliveries.Inc()
	m.attempts.Observe(float64(attempt))
}

// Settled records a finished delivery by outcome.
func (m *queueMetrics) Settled(outcome string) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(outcome).Inc()
}

// SetDepth records a queue depth snapshot.
func (m *queueMetrics) SetDepth(pending, inflight int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	m.inflight.Set(float64(inflight))
}
