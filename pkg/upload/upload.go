// Package upload assembles chunked candidate-file uploads into single
// objects in the object store.
//
// Clients split a file into chunks and submit them strictly in order; the
// assembler appends each chunk to a growing object (read-modify-write, see
// objstore.Store.Append) and, on the final chunk, detects the file layout
// and hands back the headers plus the storage key. Upload progress is
// tracked in a persistent manifest so uploads survive daemon restarts, and
// a sweeper reclaims objects whose uploads were abandoned.
package upload

import (
	"errors"
	"fmt"
	"strings"
)

// Status reports how far along a logical upload is. The values are the
// wire words returned to clients.
type Status string

const (
	// StatusInProgress means more chunks are expected.
	StatusInProgress Status = "chunk_received"

	// StatusComplete means the object is fully assembled.
	StatusComplete Status = "done"
)

var (
	// ErrChunkOutOfOrder is returned when a chunk arrives with an index
	// other than the one the manifest expects. Chunks must be submitted
	// sequentially: appends are read-modify-write, so an out-of-order or
	// repeated append would corrupt the assembled object.
	ErrChunkOutOfOrder = errors.New("chunk out of order")

	// ErrChunkMismatch is returned when a chunk declares a total count
	// different from the manifest's.
	ErrChunkMismatch = errors.New("chunk metadata mismatch")

	// ErrChunkTooLarge is returned when a chunk exceeds the configured
	// size limit.
	ErrChunkTooLarge = errors.New("chunk too large")

	// ErrInvalidChunk is returned for malformed chunk metadata.
	ErrInvalidChunk = errors.New("invalid chunk")
)

// ChunkRequest is one chunk of a logical upload.
type ChunkRequest struct {
	// FileName is the client-side name of the file being uploaded. Paired
	// with the user id it identifies the logical upload.
	FileName string

	// ChunkIndex is the zero-based position of this chunk.
	ChunkIndex int

	// TotalChunks is the number of chunks the whole file was split into.
	TotalChunks int

	// Data is the chunk body.
	Data []byte
}

// Validate checks the chunk metadata for internal consistency.
func (r *ChunkRequest) Validate() error {
	if strings.TrimSpace(r.FileName) == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidChunk)
	}
	if r.TotalChunks < 1 {
		return fmt.Errorf("%w: total_chunks must be at least 1, got %d", ErrInvalidChunk, r.TotalChunks)
	}
	if r.ChunkIndex < 0 || r.ChunkIndex >= r.TotalChunks {
		return fmt.Errorf("%w: chunk_index %d out of range [0,%d)", ErrInvalidChunk, r.ChunkIndex, r.TotalChunks)
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: chunk body is empty", ErrInvalidChunk)
	}
	return nil
}

// ChunkResult is the assembler's answer to one chunk.
type ChunkResult struct {
	// Status is StatusInProgress until the final chunk lands.
	Status Status

	// ProgressPct is round(100 * chunks_received / total_chunks).
	ProgressPct int

	// Headers holds the detected column names. Set only on StatusComplete.
	Headers []string

	// StorageKey is the assembled object's key. Set only on StatusComplete.
	StorageKey string
}

// SanitizeFileName maps a client-supplied file name onto the storage key
// alphabet: any byte outside [A-Za-z0-9.-] becomes '_'.
func SanitizeFileName(name string) string {
	out := []byte(name)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
