package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rosterhq/roster/pkg/queue"
)

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Close()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := q.Enqueue(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", key, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		msg, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if msg.Key != want {
			t.Errorf("expected key %q, got %q", want, msg.Key)
		}
		if err := q.Ack(ctx, msg.Seq); err != nil {
			t.Fatalf("Ack failed: %v", err)
		}
	}

	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrEmpty) {
		t.Errorf("expected ErrEmpty after draining, got %v", err)
	}
}

func TestQueue_PerKeySerial(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Close()

	// Two messages for the same key, one for another.
	if _, err := q.Enqueue(ctx, "job-1", []byte("first")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := q.Enqueue(ctx, "job-1", []byte("second")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := q.Enqueue(ctx, "job-2", []byte("other")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	first, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if first.Key != "job-1" || string(first.Payload) != "first" {
		t.Fatalf("expected first job-1 message, got %s/%s", first.Key, first.Payload)
	}

	// Second job-1 message is blocked while the first is inflight,
	// so job-2 is delivered next.
	second, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if second.Key != "job-2" {
		t.Fatalf("expected job-2 while job-1 inflight, got %s", second.Key)
	}

	// Nothing else deliverable.
	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrEmpty) {
		t.Fatalf("expected ErrEmpty while both keys inflight, got %v", err)
	}

	// Acking the first job-1 message unblocks the second.
	if err := q.Ack(ctx, first.Seq); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	third, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if third.Key != "job-1" || string(third.Payload) != "second" {
		t.Errorf("expected second job-1 message, got %s/%s", third.Key, third.Payload)
	}
}

func TestQueue_NackDelaysRedelivery(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Close()

	if _, err := q.Enqueue(ctx, "job-1", []byte("payload")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	msg, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if msg.Attempts != 1 {
		t.Errorf("expected 1 attempt on first delivery, got %d", msg.Attempts)
	}

	if err := q.Nack(ctx, msg.Seq, 50*time.Millisecond); err != nil {
		t.Fatalf("Nack failed: %v", err)
	}

	// Not deliverable before the delay elapses.
	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrEmpty) {
		t.Fatalf("expected ErrEmpty before delay elapsed, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	again, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue after delay failed: %v", err)
	}
	if again.Seq != msg.Seq {
		t.Errorf("expected redelivery of seq %d, got %d", msg.Seq, again.Seq)
	}
	if again.Attempts != 2 {
		t.Errorf("expected 2 attempts on redelivery, got %d", again.Attempts)
	}
}

func TestQueue_AckUnknownSeq(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Close()

	if err := q.Ack(ctx, 42); err != nil {
		t.Errorf("Ack of unknown seq should be a no-op, got %v", err)
	}
}

func TestQueue_Stats(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Close()

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, "job", nil); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pending != 2 {
		t.Errorf("expected 2 pending, got %d", stats.Pending)
	}
	if stats.Inflight != 1 {
		t.Errorf("expected 1 inflight, got %d", stats.Inflight)
	}
}

func TestQueue_Closed(t *testing.T) {
	ctx := context.Background()
	q := New()

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := q.Enqueue(ctx, "key", nil); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("expected ErrClosed from Enqueue, got %v", err)
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("expected ErrClosed from Dequeue, got %v", err)
	}
}
