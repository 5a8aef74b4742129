package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rosterhq/roster/pkg/metrics"
	"github.com/rosterhq/roster/pkg/objstore"
)

func init() {
	metrics.RegisterObjstoreMetricsConstructor(NewObjstoreMetrics)
}

// objstoreMetrics is the Prometheus implementation of objstore.Metrics.
type objstoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
}

// NewObjstoreMetrics creates a Prometheus-backed objstore.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewObjstoreMetrics() objstore.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &objstoreMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_objstore_operations_total",
				Help: "Total number of object store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "roster_objstore_operation_duration_seconds",
				Help: "Duration of object store operations",
				Buckets: []float64{
					0.001, // local fs hits
					0.01,
					0.05, // S3 metadata round trips
					0.1,
					0.5,
					1,
					5,  // large range reads
					30, // full-object writes over slow links
				},
			},
			[]string{"operation"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_objstore_bytes_total",
				Help: "Total payload bytes moved through the object store",
			},
			[]string{"operation", "direction"},
		),
	}
}

// ObserveOp records one store operation with its duration and outcome.
func (m *objstoreMetrics) ObserveOp(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operations.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordBytes records payload bytes moved by one operation.
func (m *objstoreMetrics) RecordBytes(op string, n int64) {
	if m == nil || n <= 0 {
		return
	}

	direction := "write"
	if op == "GetRange" {
		direction = "read"
	}

	m.bytes.WithLabelValues(op, direction).Add(float64(n))
}
