// Package fs provides a filesystem-backed object store implementation.
// Objects are stored as files with the object key as the path.
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rosterhq/roster/pkg/objstore"
)

// Store is a filesystem-backed implementation of objstore.Store.
type Store struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// Config controls where and how objects land on disk.
type Config struct {
	// BasePath is the directory all object keys resolve under.
	BasePath string

	// CreateDir makes BasePath (and parents) when missing.
	CreateDir bool

	// DirMode is applied to directories the store creates; zero means 0755.
	DirMode os.FileMode

	// FileMode is applied to files the store creates; zero means 0644.
	FileMode os.FileMode
}

// DefaultConfig returns a Config rooted at basePath with directory
// creation enabled and the usual unix modes.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath:  basePath,
		CreateDir: true,
		DirMode:   0755,
		FileMode:  0644,
	}
}

// withDefaults fills in zero permission modes.
func (c Config) withDefaults() Config {
	if c.DirMode == 0 {
		c.DirMode = 0755
	}
	if c.FileMode == 0 {
		c.FileMode = 0644
	}
	return c
}

// New opens a store rooted at cfg.BasePath, which must be (or become) a
// directory.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	cfg = cfg.withDefaults()

	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
			return nil, err
		}
	}
	switch info, err := os.Stat(cfg.BasePath); {
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, errors.New("base path is not a directory")
	}

	return &Store{
		basePath: cfg.BasePath,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// NewWithPath is shorthand for New(DefaultConfig(basePath)).
func NewWithPath(basePath string) (*Store, error) {
	return New(DefaultConfig(basePath))
}

// lockWrite takes the write lock after checking the context and closed
// flag. Callers defer the returned unlock.
func (s *Store) lockWrite(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, objstore.ErrClosed
	}
	return s.mu.Unlock, nil
}

// lockRead is the read-side counterpart of lockWrite.
func (s *Store) lockRead(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, objstore.ErrClosed
	}
	return s.mu.RUnlock, nil
}

// objectPath returns the full filesystem path for an object key.
// Object keys use forward slashes as separators.
func (s *Store) objectPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// Put writes a complete object, replacing any existing object at key.
//
// The object is written to a temporary file and renamed into place, so
// readers never observe a partially written object.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	unlock, err := s.lockWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	written, err := s.writeTemp(tmpPath, r)
	if err != nil {
		return err
	}

	if size >= 0 && written != size {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("object %s: body is %d bytes, expected %d", key, written, size)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// writeTemp copies r into tmpPath and reports how many bytes landed.
// The temp file is removed on any failure.
func (s *Store) writeTemp(tmpPath string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.fileMode)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return written, nil
}

// GetRange returns a reader over the byte range [start, end] of an object,
// end inclusive. A negative end reads to the end of the file. A start at or
// beyond the end of the file yields an empty reader.
//
// The caller must close the returned ReadCloser.
func (s *Store) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if start < 0 {
		return nil, fmt.Errorf("invalid range start %d for object %s", start, key)
	}

	f, err := os.Open(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s: %w", key, objstore.ErrNotFound)
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// Empty or out-of-range reads yield an empty reader
	if start >= info.Size() || (end >= 0 && end < start) {
		_ = f.Close()
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}

	// Clamp the range to the file size
	length := info.Size() - start
	if end >= 0 && end-start+1 < length {
		length = end - start + 1
	}

	return &rangeReader{f: f, r: io.LimitReader(f, length)}, nil
}

// rangeReader bounds reads to the requested range while keeping the
// underlying file handle open until Close.
type rangeReader struct {
	f *os.File
	r io.Reader
}

func (rr *rangeReader) Read(p []byte) (int, error) { return rr.r.Read(p) }
func (rr *rangeReader) Close() error               { return rr.f.Close() }

// Exists reports whether the key exists. A missing key is (false, nil).
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	unlock, err := s.lockRead(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	info, err := os.Stat(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Append appends chunk to the object at key, creating it when missing, and
// returns the object's new total size. Unlike the S3 backend the filesystem
// supports native appends, so no rewrite cycle is needed.
func (s *Store) Append(ctx context.Context, key string, chunk []byte) (int64, error) {
	unlock, err := s.lockWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, s.fileMode)
	if err != nil {
		return 0, err
	}

	if _, err := f.Write(chunk); err != nil {
		_ = f.Close()
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, err
	}

	if err := f.Close(); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	unlock, err := s.lockWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	path := s.objectPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	s.pruneEmptyDirs(filepath.Dir(path))
	return nil
}

// pruneEmptyDirs walks from dir back toward the base path, removing each
// directory that became empty. os.Remove refuses non-empty directories,
// which is what stops the walk.
func (s *Store) pruneEmptyDirs(dir string) {
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
}

// Close flags the store so further operations fail with ErrClosed. There
// is nothing to flush; files are synced per operation.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// BasePath exposes the root directory, mainly for tests.
func (s *Store) BasePath() string {
	return s.basePath
}

var _ objstore.Store = (*Store)(nil)
