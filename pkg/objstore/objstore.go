// Package objstore defines the object storage abstraction that holds
// uploaded source files.
//
// Keys are POSIX-style relative paths ("uploads/user-1/1724572800000_a.csv").
// Implementations back the same interface with Amazon S3 (or any
// S3-compatible endpoint), the local filesystem, or process memory for tests.
package objstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the requested object key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrClosed indicates the store has been closed and no longer accepts
// operations.
var ErrClosed = errors.New("object store is closed")

// Store provides object storage for uploaded source files.
//
// Thread Safety: Implementations must be safe for concurrent use. Append on
// the same key is serialized by the implementation; callers that need
// cross-process ordering must provide it themselves.
type Store interface {
	// Put writes a complete object, replacing any existing object at key.
	// size is advisory (-1 when unknown); contentType is stored with the
	// object where the backend supports it.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// GetRange returns a reader over bytes [start, end] inclusive.
	// end < 0 reads to the end of the object. A start at or beyond the end
	// of the object yields an empty reader, not an error. Returns
	// ErrNotFound if the key does not exist. The caller must close the
	// returned reader.
	GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)

	// Exists reports whether the key exists. A missing key is (false, nil),
	// not an error.
	Exists(ctx context.Context, key string) (bool, error)

	// Append appends chunk to the object at key, creating it when missing,
	// and returns the object's new total size.
	Append(ctx context.Context, key string, chunk []byte) (int64, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
