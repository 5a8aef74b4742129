package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rosterhq/roster/pkg/metrics"
	"github.com/rosterhq/roster/pkg/upload"
)

func init() {
	metrics.RegisterUploadMetricsConstructor(NewUploadMetrics)
}

// uploadMetrics is the Prometheus implementation of upload.Metrics.
type uploadMetrics struct {
	chunksReceived prometheus.Counter
	chunkBytes     prometheus.Histogram
	assembled      prometheus.Counter
	assembledBytes prometheus.Histogram
	manifestsSwept prometheus.Counter
}

// NewUploadMetrics creates a new Prometheus-backed upload.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewUploadMetrics() upload.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &uploadMetrics{
		chunksReceived: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "roster_upload_chunks_received_total",
				Help: "Total number of upload chunks stored",
			},
		),
		chunkBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "roster_upload_chunk_bytes",
				Help: "Distribution of stored chunk sizes",
				Buckets: []float64{
					4096,     // 4KB
					65536,    // 64KB
					262144,   // 256KB
					1048576,  // 1MB - common client chunk size
					5242880,  // 5MB
					10485760, // 10MB
					52428800, // 50MB
				},
			},
		),
		assembled: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "roster_upload_assembled_total",
				Help: "Total number of uploads assembled to completion",
			},
		),
		assembledBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "roster_upload_assembled_bytes",
				Help: "Distribution of assembled object sizes",
				Buckets: []float64{
					65536,      // 64KB
					1048576,    // 1MB
					10485760,   // 10MB
					104857600,  // 100MB
					1073741824, // 1GB
				},
			},
		),
		manifestsSwept: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "roster_upload_manifests_swept_total",
				Help: "Total number of abandoned uploads removed by the sweeper",
			},
		),
	}
}

// ChunkReceived records one stored chunk.
func (m *uploadMetrics) ChunkReceived(bytes int) {
	if m == nil {
		return
	}
	m.chunksReceived.Inc()
	m.chunkBytes.Observe(float64(bytes))
}

// UploadAssembled records a completed upload.
func (m *uploadMetrics) UploadAssembled(bytes int64, chunks int) {
	if m == nil {
		return
	}
	m.assembled.Inc()
	m.assembledBytes.Observe(float64(bytes))
}

// ManifestsSwept records uploads removed by the stale sweeper.
func (m *uploadMetrics) ManifestsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.manifestsSwept.Add(float64(n))
}
