// Package memory provides an in-memory queue implementation.
// Messages are lost on process exit. Test use only.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rosterhq/roster/pkg/queue"
)

// Message delivery states.
const (
	statePending  = "pending"
	stateInflight = "inflight"
)

type storedMessage struct {
	queue.Message
	state string
}

// Queue is an in-memory implementation of queue.Queue.
type Queue struct {
	mu       sync.Mutex
	nextSeq  uint64
	messages []*storedMessage // FIFO by seq
	inflight map[string]uint64
	closed   bool
}

// New creates a new in-memory queue.
func New() *Queue {
	return &Queue{
		inflight: make(map[string]uint64),
	}
}

// Enqueue appends a message and returns its sequence number.
func (q *Queue) Enqueue(ctx context.Context, key string, payload []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, queue.ErrClosed
	}

	seq := q.nextSeq
	q.nextSeq++

	q.messages = append(q.messages, &storedMessage{
		Message: queue.Message{
			Seq:     seq,
			Key:     key,
			Payload: payload,
		},
		state: statePending,
	})

	return seq, nil
}

// Dequeue returns the oldest deliverable message and marks it inflight.
func (q *Queue) Dequeue(ctx context.Context) (*queue.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, queue.ErrClosed
	}

	now := time.Now()

	for _, sm := range q.messages {
		if sm.state != statePending {
			continue
		}
		if !sm.NotBefore.IsZero() && sm.NotBefore.After(now) {
			continue
		}
		if _, busy := q.inflight[sm.Key]; busy {
			continue
		}

		sm.state = stateInflight
		sm.Attempts++
		q.inflight[sm.Key] = sm.Seq

		msg := sm.Message
		return &msg, nil
	}

	return nil, queue.ErrEmpty
}

// Ack removes a delivered message.
func (q *Queue) Ack(ctx context.Context, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.ErrClosed
	}

	for i, sm := range q.messages {
		if sm.Seq != seq {
			continue
		}
		if q.inflight[sm.Key] == seq {
			delete(q.inflight, sm.Key)
		}
		q.messages = append(q.messages[:i], q.messages[i+1:]...)
		return nil
	}

	return nil
}

// Nack returns a delivered message to pending with redelivery delayed.
func (q *Queue) Nack(ctx context.Context, seq uint64, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.ErrClosed
	}

	for _, sm := range q.messages {
		if sm.Seq != seq {
			continue
		}
		sm.state = statePending
		sm.NotBefore = time.Now().Add(delay)
		if q.inflight[sm.Key] == seq {
			delete(q.inflight, sm.Key)
		}
		return nil
	}

	return nil
}

// Stats reports pending and inflight message counts.
func (q *Queue) Stats(ctx context.Context) (queue.Stats, error) {
	if err := ctx.Err(); err != nil {
		return queue.Stats{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.Stats{}, queue.ErrClosed
	}

	var stats queue.Stats
	for _, sm := range q.messages {
		switch sm.state {
		case stateInflight:
			stats.Inflight++
		default:
			stats.Pending++
		}
	}

	return stats, nil
}

// Close marks the queue as closed.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// Ensure Queue implements queue.Queue.
var _ queue.Queue = (*Queue)(nil)
