package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span names, <component>.<operation>.
const (
	SpanIngestRun   = "ingest.run"
	SpanUploadChunk = "upload.chunk"
	SpanJobCreate   = "job.create"
)

// Attribute constructors for the spans above. Counter values recorded on
// a span are the values at span end, not a live gauge.

func JobID(id string) attribute.KeyValue {
	return attribute.String("job.id", id)
}

func UserID(id string) attribute.KeyValue {
	return attribute.String("user.id", id)
}

func Filename(name string) attribute.KeyValue {
	return attribute.String("upload.filename", name)
}

func ChunkIndex(i int) attribute.KeyValue {
	return attribute.Int("upload.chunk_index", i)
}

func ResumeFrom(n int64) attribute.KeyValue {
	return attribute.Int64("job.resume_from", n)
}

func StorageKey(key string) attribute.KeyValue {
	return attribute.String("storage.key", key)
}
