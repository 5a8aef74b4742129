package upload

import (
	"context"
	"errors"
	"time"
)

// ErrManifestNotFound is returned when no upload is in progress for a
// (user, file name) pair.
var ErrManifestNotFound = errors.New("upload manifest not found")

// Manifest tracks one logical chunked upload. It is created on the first
// chunk, updated after every successful append, and deleted when the last
// chunk lands. Persisting it means an in-flight upload survives a daemon
// restart: the client keeps submitting chunks and the assembler keeps
// appending to the same object.
type Manifest struct {
	// UserID and FileName identify the logical upload. A user re-sending
	// chunk 0 for the same file name starts the upload over.
	UserID   string `json:"user_id"`
	FileName string `json:"file_name"`

	// StorageKey is the object the chunks are appended to. Minted once,
	// on the first chunk.
	StorageKey string `json:"storage_key"`

	// TotalChunks is the chunk count declared by the client on chunk 0.
	// Every later chunk must declare the same count.
	TotalChunks int `json:"total_chunks"`

	// Received lists the chunk indices appended so far, in arrival order.
	// Because chunks are accepted strictly in order this is always
	// 0..len-1; the explicit list keeps the manifest self-describing.
	Received []int `json:"received"`

	// BytesTotal is the assembled object size so far.
	BytesTotal int64 `json:"bytes_total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NextChunk returns the only chunk index the assembler will accept next.
func (m *Manifest) NextChunk() int {
	return len(m.Received)
}

// ManifestStore persists upload manifests.
//
// Implementations: badger (durable, production) and memory (tests).
type ManifestStore interface {
	// Get returns the manifest for a (user, file name) pair, or
	// ErrManifestNotFound.
	Get(ctx context.Context, userID, fileName string) (*Manifest, error)

	// Put creates or replaces a manifest.
	Put(ctx context.Context, m *Manifest) error

	// Delete removes a manifest. Deleting a missing manifest is not an
	// error.
	Delete(ctx context.Context, userID, fileName string) error

	// List returns all manifests. Used by the stale-upload sweeper.
	List(ctx context.Context) ([]*Manifest, error)

	// Close releases the underlying resources.
	Close() error
}
