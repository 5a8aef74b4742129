// Package badger implements the upload manifest store on BadgerDB, so
// in-flight chunked uploads survive daemon restarts.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/upload"
)

// prefixManifest namespaces manifest records. Keys are
// "u:<userID>\x00<fileName>": user ids never contain NUL, so the pair is
// unambiguous.
const prefixManifest = "u:"

// ManifestStore persists upload manifests in a BadgerDB directory.
type ManifestStore struct {
	db *badger.DB

	mu     sync.Mutex
	closed bool
}

// Config holds configuration for the badger manifest store.
type Config struct {
	// Path is the directory for the badger database. Created if missing.
	Path string

	// InMemory runs badger without disk persistence. Test use only.
	InMemory bool
}

// New opens (or creates) a badger-backed manifest store.
func New(ctx context.Context, cfg Config) (*ManifestStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("manifest path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(badgerLogger{}).
		WithSyncWrites(!cfg.InMemory)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest database: %w", err)
	}

	return &ManifestStore{db: db}, nil
}

// Get returns the manifest for a (user, file name) pair.
func (s *ManifestStore) Get(ctx context.Context, userID, fileName string) (*upload.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m *upload.Manifest
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey(userID, fileName))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return upload.ErrManifestNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			m, err = decodeManifest(val)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, upload.ErrManifestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read upload manifest: %w", err)
	}
	return m, nil
}

// Put creates or replaces a manifest.
func (s *ManifestStore) Put(ctx context.Context, m *upload.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val, err := encodeManifest(m)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(manifestKey(m.UserID, m.FileName), val)
	})
	if err != nil {
		return fmt.Errorf("failed to write upload manifest: %w", err)
	}
	return nil
}

// Delete removes a manifest. Deleting a missing manifest is not an error.
func (s *ManifestStore) Delete(ctx context.Context, userID, fileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(manifestKey(userID, fileName))
	})
	if err != nil {
		return fmt.Errorf("failed to delete upload manifest: %w", err)
	}
	return nil
}

// List returns all manifests.
func (s *ManifestStore) List(ctx context.Context) ([]*upload.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var manifests []*upload.Manifest
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixManifest)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				m, err := decodeManifest(val)
				if err != nil {
					return err
				}
				manifests = append(manifests, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list upload manifests: %w", err)
	}
	return manifests, nil
}

// Close releases the database.
func (s *ManifestStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close manifest database: %w", err)
	}
	return nil
}

// manifestKey generates a key: "u:<userID>\x00<fileName>"
func manifestKey(userID, fileName string) []byte {
	key := make([]byte, 0, len(prefixManifest)+len(userID)+1+len(fileName))
	key = append(key, prefixManifest...)
	key = append(key, userID...)
	key = append(key, 0)
	key = append(key, fileName...)
	return key
}

func encodeManifest(m *upload.Manifest) ([]byte, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload manifest: %w", err)
	}
	return bytes, nil
}

func decodeManifest(bytes []byte) (*upload.Manifest, error) {
	var m upload.Manifest
	if err := json.Unmarshal(bytes, &m); err != nil {
		return nil, fmt.Errorf("failed to decode upload manifest: %w", err)
	}
	return &m, nil
}

// badgerLogger routes badger's internal logging through the application
// logger. Badger's info-level chatter is demoted to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Errorf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warnf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debugf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debugf("badger: "+format, args...)
}

// Ensure ManifestStore implements upload.ManifestStore.
var _ upload.ManifestStore = (*ManifestStore)(nil)
