// Package memory provides an in-memory object store implementation.
// Objects are held in a map and lost on process exit. Test use only.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rosterhq/roster/pkg/objstore"
)

// Store is an in-memory implementation of objstore.Store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	closed  bool
}

// New creates a new in-memory object store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Put writes a complete object, replacing any existing object at key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("object %s: body is %d bytes, expected %d", key, len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objstore.ErrClosed
	}

	s.objects[key] = data
	return nil
}

// GetRange returns a reader over the byte range [start, end] of an object,
// end inclusive. A negative end reads to the end of the object. A start at
// or beyond the end of the object yields an empty reader.
func (s *Store) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objstore.ErrClosed
	}

	if start < 0 {
		return nil, fmt.Errorf("invalid range start %d for object %s", start, key)
	}

	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, objstore.ErrNotFound)
	}

	size := int64(len(data))
	if start >= size || (end >= 0 && end < start) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	// Clamp the range to the object size
	last := size - 1
	if end >= 0 && end < last {
		last = end
	}

	// Copy so later writes don't mutate the reader's view
	buf := make([]byte, last-start+1)
	copy(buf, data[start:last+1])

	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Exists reports whether the key exists. A missing key is (false, nil).
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, objstore.ErrClosed
	}

	_, ok := s.objects[key]
	return ok, nil
}

// Append appends chunk to the object at key, creating it when missing, and
// returns the object's new total size.
func (s *Store) Append(ctx context.Context, key string, chunk []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, objstore.ErrClosed
	}

	existing := s.objects[key]
	data := make([]byte, 0, len(existing)+len(chunk))
	data = append(data, existing...)
	data = append(data, chunk...)
	s.objects[key] = data

	return int64(len(data)), nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objstore.ErrClosed
	}

	delete(s.objects, key)
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Len returns the number of stored objects (for testing).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

// Ensure Store implements objstore.Store.
var _ objstore.Store = (*Store)(nil)
