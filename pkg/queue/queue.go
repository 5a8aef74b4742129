// Package queue provides the durable FIFO work queue that feeds ingestion
// jobs to the worker pool.
//
// Messages are delivered oldest-first with at-most-one inflight message per
// key, so two workers can never process the same job concurrently. A failed
// delivery is retried with exponential backoff up to a bounded attempt
// count. The badger implementation persists messages across restarts;
// messages that were inflight when the process died are redelivered.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty indicates no message is ready for delivery. The queue may still
// hold messages that are inflight, backing off, or blocked behind an
// inflight message with the same key.
var ErrEmpty = errors.New("queue is empty")

// ErrClosed indicates the queue has been closed.
var ErrClosed = errors.New("queue is closed")

// Message is one unit of work.
type Message struct {
	// Seq is the queue-assigned sequence number. Delivery is FIFO by Seq.
	Seq uint64 `json:"seq"`

	// Key groups messages for serial delivery; at most one message per key
	// is inflight at any time. Ingestion uses the job id.
	Key string `json:"key"`

	// Payload is the opaque message body.
	Payload []byte `json:"payload"`

	// Attempts counts deliveries of this message, including the current one.
	Attempts int `json:"attempts"`

	// NotBefore delays delivery until the given time. Zero means immediately
	// deliverable. Set by Nack for retry backoff.
	NotBefore time.Time `json:"not_before,omitempty"`
}

// Handler processes one dequeued message. A nil return acks the message; an
// error nacks it for retry.
type Handler func(ctx context.Context, msg *Message) error

// Queue is a durable FIFO queue with per-key serial delivery.
//
// Dequeue marks the returned message inflight. The consumer must finish it
// with exactly one of Ack (success, message removed) or Nack (failure,
// message redelivered after a delay). Messages inflight at process death
// are returned to pending when the queue reopens.
type Queue interface {
	// Enqueue appends a message and returns its sequence number.
	Enqueue(ctx context.Context, key string, payload []byte) (uint64, error)

	// Dequeue returns the oldest deliverable message and marks it inflight.
	// A message is deliverable when it is pending, its NotBefore has passed,
	// and no message with the same key is inflight. Returns ErrEmpty when
	// nothing is deliverable.
	Dequeue(ctx context.Context) (*Message, error)

	// Ack removes a delivered message from the queue.
	Ack(ctx context.Context, seq uint64) error

	// Nack returns a delivered message to pending, delaying redelivery by
	// delay. The attempt count is preserved; Dequeue increments it on each
	// delivery.
	Nack(ctx context.Context, seq uint64, delay time.Duration) error

	// Stats reports queue depth for monitoring.
	Stats(ctx context.Context) (Stats, error)

	// Close releases queue resources. Inflight messages are redelivered on
	// the next open.
	Close() error
}

// Stats is a point-in-time snapshot of queue depth.
type Stats struct {
	// Pending is the number of messages waiting for delivery, including
	// messages backing off after a Nack.
	Pending int

	// Inflight is the number of messages currently being processed.
	Inflight int
}
