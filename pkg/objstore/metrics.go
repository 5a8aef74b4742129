package objstore

import (
	"context"
	"io"
	"time"
)

// Metrics receives per-operation observations from an instrumented Store.
// Implementations must be safe for concurrent use. A nil Metrics disables
// recording.
type Metrics interface {
	// ObserveOp is called once per store operation with its duration and
	// outcome. op is the Store method name ("Put", "GetRange", "Exists",
	// "Append", "Delete").
	ObserveOp(op string, duration time.Duration, err error)

	// RecordBytes is called with the number of payload bytes an operation
	// moved: bytes consumed for "Put" and "Append", bytes read from the
	// returned stream for "GetRange".
	RecordBytes(op string, n int64)
}

// WithMetrics wraps s so that every operation reports to m.
// Returns s unchanged when m is nil.
func WithMetrics(s Store, m Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{next: s, metrics: m}
}

type instrumentedStore struct {
	next    Store
	metrics Metrics
}

func (s *instrumentedStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	cr := &countingReader{r: r}
	start := time.Now()
	err := s.next.Put(ctx, key, cr, size, contentType)
	s.metrics.ObserveOp("Put", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes("Put", cr.n)
	}
	return err
}

// GetRange times the call that opens the stream; bytes are reported by the
// returned reader when it is closed.
func (s *instrumentedStore) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	began := time.Now()
	rc, err := s.next.GetRange(ctx, key, start, end)
	s.metrics.ObserveOp("GetRange", time.Since(began), err)
	if err != nil {
		return nil, err
	}
	return &countingReadCloser{rc: rc, metrics: s.metrics}, nil
}

func (s *instrumentedStore) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Exists(ctx, key)
	s.metrics.ObserveOp("Exists", time.Since(start), err)
	return ok, err
}

func (s *instrumentedStore) Append(ctx context.Context, key string, chunk []byte) (int64, error) {
	start := time.Now()
	size, err := s.next.Append(ctx, key, chunk)
	s.metrics.ObserveOp("Append", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes("Append", int64(len(chunk)))
	}
	return size, err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.metrics.ObserveOp("Delete", time.Since(start), err)
	return err
}

// countingReader counts the bytes a backend consumed while storing an object.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// countingReadCloser reports bytes read from a GetRange stream once, on the
// first Close.
type countingReadCloser struct {
	rc      io.ReadCloser
	metrics Metrics
	n       int64
	closed  bool
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReadCloser) Close() error {
	err := c.rc.Close()
	if !c.closed {
		c.closed = true
		c.metrics.RecordBytes("GetRange", c.n)
	}
	return err
}
