package badger

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/rosterhq/roster/pkg/queue"
)

// Enqueue appends a message and returns its sequence number.
func (q *BadgerQueue) Enqueue(ctx context.Context, key string, payload []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return 0, queue.ErrClosed
	}

	seq, err := q.seq.Next()
	if err != nil {
		return 0, err
	}

	sm := &storedMessage{
		Message: queue.Message{
			Seq:     seq,
			Key:     key,
			Payload: payload,
		},
		State: statePending,
	}

	data, err := encodeMessage(sm)
	if err != nil {
		return 0, err
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyMessage(seq), data)
	})
	if err != nil {
		return 0, err
	}

	return seq, nil
}

// Dequeue returns the oldest deliverable message and marks it inflight.
// Returns queue.ErrEmpty when no message is pending, due and key-free.
func (q *BadgerQueue) Dequeue(ctx context.Context) (*queue.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The mutex serializes dequeues so concurrent workers cannot claim the
	// same message, and guards the inflight-key set.
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, queue.ErrClosed
	}

	now := time.Now()
	var claimed *storedMessage

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

			if sm.State != statePending {
				continue
			}
			if !sm.NotBefore.IsZero() && sm.NotBefore.After(now) {
				continue
			}
			if _, busy := q.inflight[sm.Key]; busy {
				continue
			}

			sm.State = stateInflight
			sm.Attempts++

			data, err := encodeMessage(sm)
			if err != nil {
				return err
			}
			if err := txn.Set(keyMessage(sm.Seq), data); err != nil {
				return err
			}

			claimed = sm
			return nil
		}

		return queue.ErrEmpty
	})
	if err != nil {
		return nil, err
	}

	q.inflight[claimed.Key] = claimed.Seq

	msg := claimed.Message
	return &msg, nil
}

// loadMessage fetches and decodes the stored message at seq inside txn.
// A missing seq returns (nil, nil): the message was already settled.
func loadMessage(txn *badger.Txn, seq uint64) (*storedMessage, error) {
	item, err := txn.Get(keyMessage(seq))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sm *storedMessage
	err = item.Value(func(val []byte) error {
		var decErr error
		sm, decErr = decodeMessage(val)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return sm, nil
}

// releaseInflight drops the inflight reservation for key, but only if it
// still belongs to seq. Must be called with q.mu held.
func (q *BadgerQueue) releaseInflight(key string, seq uint64) {
	if q.inflight[key] == seq {
		delete(q.inflight, key)
	}
}

// Ack removes a delivered message. Acking an already-settled message is a
// no-op.
func (q *BadgerQueue) Ack(ctx context.Context, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.ErrClosed
	}

	var key string
	found := false

	err := q.db.Update(func(txn *badger.Txn) error {
		sm, err := loadMessage(txn, seq)
		if err != nil || sm == nil {
			return err
		}
		key = sm.Key
		found = true
		return txn.Delete(keyMessage(seq))
	})
	if err != nil {
		return err
	}

	if found {
		q.releaseInflight(key, seq)
	}
	return nil
}

// Nack returns a delivered message to pending with its redelivery delayed.
func (q *BadgerQueue) Nack(ctx context.Context, seq uint64, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.ErrClosed
	}

	var key string
	found := false

	err := q.db.Update(func(txn *badger.Txn) error {
		sm, err := loadMessage(txn, seq)
		if err != nil || sm == nil {
			return err
		}

		sm.State = statePending
		sm.NotBefore = time.Now().Add(delay)

		data, err := encodeMessage(sm)
		if err != nil {
			return err
		}

		key = sm.Key
		found = true
		return txn.Set(keyMessage(seq), data)
	})
	if err != nil {
		return err
	}

	if found {
		q.releaseInflight(key, seq)
	}
	return nil
}

// Stats reports pending and inflight message counts.
func (q *BadgerQueue) Stats(ctx context.Context) (queue.Stats, error) {
	if err := ctx.Err(); err != nil {
		return queue.Stats{}, err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return queue.Stats{}, queue.ErrClosed
	}
	q.mu.Unlock()

	var stats queue.Stats

	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMessage)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				sm, decErr := decodeMessage(val)
				if decErr != nil {
					return decErr
				}
				switch sm.State {
				case stateInflight:
					stats.Inflight++
				default:
					stats.Pending++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return queue.Stats{}, err
	}

	return stats, nil
}
