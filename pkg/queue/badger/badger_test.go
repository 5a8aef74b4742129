package badger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rosterhq/roster/pkg/queue"
	"github.com/rosterhq/roster/pkg/queue/badger"
)

func newTestQueue(t *testing.T) *badger.BadgerQueue {
	t.Helper()

	q, err := badger.New(context.Background(), badger.Config{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		q.Close()
	})
	return q
}

func TestBadgerQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	var seqs []uint64
	for _, key := range []string{"a", "b", "c"} {
		seq, err := q.Enqueue(ctx, key, []byte(key))
		if err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", key, err)
		}
		seqs = append(seqs, seq)
	}

	for i, want := range []string{"a", "b", "c"} {
		msg, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if msg.Key != want {
			t.Errorf("expected key %q at position %d, got %q", want, i, msg.Key)
		}
		if msg.Seq != seqs[i] {
			t.Errorf("expected seq %d at position %d, got %d", seqs[i], i, msg.Seq)
		}
		if string(msg.Payload) != want {
			t.Errorf("expected payload %q, got %q", want, msg.Payload)
		}
		if err := q.Ack(ctx, msg.Seq); err != nil {
			t.Fatalf("Ack failed: %v", err)
		}
	}

	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrEmpty) {
		t.Errorf("expected ErrEmpty after draining, got %v", err)
	}
}

func TestBadgerQueue_PerKeySerial(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

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

	// The second job-1 message is blocked behind the inflight one.
	second, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if second.Key != "job-2" {
		t.Fatalf("expected job-2 while job-1 inflight, got %s", second.Key)
	}

	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrEmpty) {
		t.Fatalf("expected ErrEmpty while both keys inflight, got %v", err)
	}

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

func TestBadgerQueue_NackDelaysRedelivery(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

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
	if string(again.Payload) != "payload" {
		t.Errorf("expected payload preserved, got %q", again.Payload)
	}
}

func TestBadgerQueue_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	q, err := badger.New(ctx, badger.Config{Path: dir})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := q.Enqueue(ctx, "job-1", []byte("one")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := q.Enqueue(ctx, "job-2", []byte("two")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := badger.New(ctx, badger.Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	for _, want := range []string{"one", "two"} {
		msg, err := reopened.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue after reopen failed: %v", err)
		}
		if string(msg.Payload) != want {
			t.Errorf("expected payload %q, got %q", want, msg.Payload)
		}
		if err := reopened.Ack(ctx, msg.Seq); err != nil {
			t.Fatalf("Ack failed: %v", err)
		}
	}
}

func TestBadgerQueue_RecoversInflightOnReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	q, err := badger.New(ctx, badger.Config{Path: dir})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := q.Enqueue(ctx, "job-1", []byte("payload")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	msg, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	// Close with the message still inflight, simulating a crash mid-job.
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := badger.New(ctx, badger.Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pending != 1 || stats.Inflight != 0 {
		t.Errorf("expected recovered message pending, got pending=%d inflight=%d",
			stats.Pending, stats.Inflight)
	}

	redelivered, err := reopened.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue after reopen failed: %v", err)
	}
	if redelivered.Seq != msg.Seq {
		t.Errorf("expected redelivery of seq %d, got %d", msg.Seq, redelivered.Seq)
	}
	if redelivered.Attempts != 2 {
		t.Errorf("expected 2 attempts after crash redelivery, got %d", redelivered.Attempts)
	}
}

func TestBadgerQueue_AckUnknownSeq(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	if err := q.Ack(ctx, 42); err != nil {
		t.Errorf("Ack of unknown seq should be a no-op, got %v", err)
	}
}

func TestBadgerQueue_Stats(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

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

func TestBadgerQueue_Closed(t *testing.T) {
	ctx := context.Background()

	q, err := badger.New(ctx, badger.Config{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	if _, err := q.Enqueue(ctx, "key", nil); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("expected ErrClosed from Enqueue, got %v", err)
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("expected ErrClosed from Dequeue, got %v", err)
	}
}

func TestBadgerQueue_InMemory(t *testing.T) {
	ctx := context.Background()

	q, err := badger.New(ctx, badger.Config{InMemory: true})
	if err != nil {
		t.Fatalf("New() with InMemory failed: %v", err)
	}
	defer q.Close()

	if _, err := q.Enqueue(ctx, "job", []byte("payload")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	msg, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if string(msg.Payload) != "payload" {
		t.Errorf("expected payload round-trip, got %q", msg.Payload)
	}
}
