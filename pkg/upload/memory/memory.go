// Package memory implements an in-memory upload manifest store for tests
// and throwaway environments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rosterhq/roster/pkg/upload"
)

// Store is a map-backed manifest store. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	manifests map[string]*upload.Manifest
}

// New creates an empty manifest store.
func New() *Store {
	return &Store{manifests: make(map[string]*upload.Manifest)}
}

// Get returns the manifest for a (user, file name) pair.
func (s *Store) Get(ctx context.Context, userID, fileName string) (*upload.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manifests[mapKey(userID, fileName)]
	if !ok {
		return nil, upload.ErrManifestNotFound
	}
	cp := *m
	cp.Received = append([]int(nil), m.Received...)
	return &cp, nil
}

// Put creates or replaces a manifest.
func (s *Store) Put(ctx context.Context, m *upload.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	cp.Received = append([]int(nil), m.Received...)
	s.manifests[mapKey(m.UserID, m.FileName)] = &cp
	return nil
}

// Delete removes a manifest. Deleting a missing manifest is not an error.
func (s *Store) Delete(ctx context.Context, userID, fileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.manifests, mapKey(userID, fileName))
	return nil
}

// List returns all manifests.
func (s *Store) List(ctx context.Context) ([]*upload.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*upload.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		cp := *m
		cp.Received = append([]int(nil), m.Received...)
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func mapKey(userID, fileName string) string {
	return fmt.Sprintf("%s\x00%s", userID, fileName)
}

// Ensure Store implements upload.ManifestStore.
var _ upload.ManifestStore = (*Store)(nil)
