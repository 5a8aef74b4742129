// Package badger implements the durable queue on BadgerDB.
//
// This file contains the store type, constructor, crash recovery and
// lifecycle management.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/queue"
)

// seqBandwidth is the lease size for the badger sequence. Numbers leased
// but unused at shutdown are skipped, which keeps ordering monotonic.
const seqBandwidth = 64

// gcInterval is how often the value-log garbage collector runs.
const gcInterval = 5 * time.Minute

// BadgerQueue is a durable FIFO queue persisted in a BadgerDB directory.
//
// Per-key serial delivery is enforced with an in-memory inflight-key set:
// Dequeue skips any pending message whose key already has an inflight
// message. The set starts empty on every open because recovery returns all
// inflight messages to pending first. BadgerDB's directory lock guarantees
// a single process, so the in-memory set is authoritative.
type BadgerQueue struct {
	db  *badger.DB
	seq *badger.Sequence

	mu       sync.Mutex
	inflight map[string]uint64 // key -> seq of the inflight message
	closed   bool

	gcStopCh chan struct{}
	gcDoneCh chan struct{}
}

// Config holds configuration for the badger queue.
type Config struct {
	// Path is the directory for the badger database. Created if missing.
	Path string

	// InMemory runs badger without disk persistence. Test use only.
	InMemory bool
}

// New opens (or creates) a badger-backed queue and recovers messages that
// were inflight when the previous process died.
func New(ctx context.Context, cfg Config) (*BadgerQueue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("queue path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(badgerLogger{}).
		WithSyncWrites(!cfg.InMemory)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	seq, err := db.GetSequence(keySequence(), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open queue sequence: %w", err)
	}

	q := &BadgerQueue{
		db:       db,
		seq:      seq,
		inflight: make(map[string]uint64),
		gcStopCh: make(chan struct{}),
		gcDoneCh: make(chan struct{}),
	}

	recovered, err := q.recoverInflight()
	if err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, fmt.Errorf("failed to recover inflight messages: %w", err)
	}
	if recovered > 0 {
		logger.Info("Recovered inflight queue messages", "count", recovered)
	}

	go q.gcLoop()

	return q, nil
}

// recoverInflight returns all inflight messages to pending. Called once on
// open, before any dequeue, so a crash mid-job leads to redelivery.
func (q *BadgerQueue) recoverInflight() (int, error) {
	recovered := 0

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMessage)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()

			var sm *storedMessage
			err := item.Value(func(val []byte) error {
				var decErr error
				sm, decErr = decodeMessage(val)
				return decErr
			})
			if err != nil {
				return err
			}

			if sm.State != stateInflight {
				continue
			}

			sm.State = statePending
			sm.NotBefore = time.Time{}

			data, err := encodeMessage(sm)
			if err != nil {
				return err
			}
			if err := txn.Set(keyMessage(sm.Seq), data); err != nil {
				return err
			}
			recovered++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return recovered, nil
}

// gcLoop runs badger's value-log garbage collection periodically.
func (q *BadgerQueue) gcLoop() {
	defer close(q.gcDoneCh)

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.gcStopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect
			if err := q.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Debug("Queue value log GC", "error", err)
			}
		}
	}
}

// Close releases the sequence lease and closes the database. Messages still
// inflight are redelivered on the next open.
func (q *BadgerQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.gcStopCh)
	<-q.gcDoneCh

	if err := q.seq.Release(); err != nil {
		logger.Warn("Failed to release queue sequence", "error", err)
	}

	return q.db.Close()
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

// Ensure BadgerQueue implements queue.Queue.
var _ queue.Queue = (*BadgerQueue)(nil)
