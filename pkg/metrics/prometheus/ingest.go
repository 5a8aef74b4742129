// Package prometheus implements the metrics interfaces with Prometheus
// collectors. Importing this package (usually blank, from a binary's main)
// registers the constructors with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rosterhq/roster/pkg/ingest"
	"github.com/rosterhq/roster/pkg/metrics"
)

func init() {
	metrics.RegisterIngestMetricsConstructor(NewIngestMetrics)
}

// ingestMetrics is the Prometheus implementation of ingest.Metrics.
type ingestMetrics struct {
	jobsStarted   prometheus.Counter
	jobsFinished  *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	activeJobs    prometheus.Gauge
	rows          *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchRows     prometheus.Histogram
}

// NewIngestMetrics creates a new Prometheus-backed ingest.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIngestMetrics() ingest.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ingestMetrics{
		jobsStarted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "roster_ingest_jobs_started_total",
				Help: "Total number of ingestion runs claimed by a worker",
			},
		),
		jobsFinished: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_ingest_jobs_finished_total",
				Help: "Total number of finished ingestion runs by outcome",
			},
			[]string{"outcome"}, // "completed", "failed", "paused"
		),
		jobDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "roster_ingest_job_duration_seconds",
				Help: "Wall-clock duration of one ingestion run",
				Buckets: []float64{
					0.1,  // tiny files
					1,    // seconds-scale imports
					5,    //
					15,   //
					60,   // 1m
					300,  // 5m
					900,  // 15m - multi-million row files
					3600, // 1h
				},
			},
			[]string{"outcome"},
		),
		activeJobs: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "roster_ingest_active_jobs",
				Help: "Number of ingestion runs currently processing",
			},
		),
		rows: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_ingest_rows_total",
				Help: "Total number of data rows by outcome",
			},
			[]string{"outcome"}, // "inserted", "rejected"
		),
		batchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "roster_ingest_batch_insert_duration_seconds",
				Help: "Duration of one datastore batch insert",
				Buckets: []float64{
					0.01, // in-memory and SQLite
					0.05, //
					0.1,  //
					0.25, //
					0.5,  //
					1,    //
					2.5,  //
					5,    //
					10,   //
					30,   // the insert deadline
				},
			},
			[]string{"status"}, // "ok", "error"
		),
		batchRows: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "roster_ingest_batch_rows",
				Help:    "Distribution of batch sizes handed to the datastore",
				Buckets: []float64{1, 10, 100, 500, 1000, 2000},
			},
		),
	}
}

// JobStarted records a claimed run.
func (m *ingestMetrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsStarted.Inc()
	m.activeJobs.Inc()
}

// JobFinished records a finished run with its outcome.
func (m *ingestMetrics) JobFinished(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(outcome).Inc()
	m.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.activeJobs.Dec()
}

// AddRows records row deltas by outcome.
func (m *ingestMetrics) AddRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(outcome).Add(float64(n))
}

// ObserveBatchInsert records one datastore batch write.
func (m *ingestMetrics) ObserveBatchInsert(rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.batchDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.batchRows.Observe(float64(rows))
}
