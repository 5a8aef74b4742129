package upload

// Metrics receives assembler observations. Implementations must be safe
// for concurrent use. A nil Metrics disables recording.
type Metrics interface {
	// ChunkReceived records one stored chunk and its size in bytes.
	ChunkReceived(bytes int)

	// UploadAssembled records a completed upload: final object size and
	// chunk count.
	UploadAssembled(bytes int64, chunks int)

	// ManifestsSwept records uploads removed by the stale sweeper.
	ManifestsSwept(n int)
}
