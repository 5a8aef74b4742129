package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rosterhq/roster/pkg/queue"
	"github.com/rosterhq/roster/pkg/queue/memory"
)

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorker_ProcessesMessages(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	var processed atomic.Int32
	handler := func(ctx context.Context, msg *queue.Message) error {
		processed.Add(1)
		return nil
	}

	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      2,
		PollInterval: 10 * time.Millisecond,
	})
	w.Start(ctx)
	defer w.Stop(time.Second)

	for i := 0; i < 5; i++ {
		if _, err := q.Enqueue(ctx, "job", []byte("payload")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return processed.Load() == 5 })

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pending != 0 || stats.Inflight != 0 {
		t.Errorf("expected drained queue, got pending=%d inflight=%d", stats.Pending, stats.Inflight)
	}
}

func TestWorker_RetriesFailedMessages(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	var attempts atomic.Int32
	handler := func(ctx context.Context, msg *queue.Message) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	}

	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      1,
		MaxAttempts:  3,
		RetryDelay:   10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	w.Start(ctx)
	defer w.Stop(time.Second)

	if _, err := q.Enqueue(ctx, "job", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return attempts.Load() == 3 })

	// The message succeeded on the last attempt and should be gone.
	waitFor(t, time.Second, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.Pending == 0 && stats.Inflight == 0
	})
}

func TestWorker_ExhaustedCallback(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	handlerErr := errors.New("permanent failure")
	handler := func(ctx context.Context, msg *queue.Message) error {
		return handlerErr
	}

	var mu sync.Mutex
	var exhaustedKey string
	var exhaustedAttempts int
	var exhaustedErr error

	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      1,
		MaxAttempts:  2,
		RetryDelay:   10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		Exhausted: func(ctx context.Context, msg *queue.Message, err error) {
			mu.Lock()
			defer mu.Unlock()
			exhaustedKey = msg.Key
			exhaustedAttempts = msg.Attempts
			exhaustedErr = err
		},
	})
	w.Start(ctx)
	defer w.Stop(time.Second)

	if _, err := q.Enqueue(ctx, "job-1", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return exhaustedKey != ""
	})

	mu.Lock()
	if exhaustedKey != "job-1" {
		t.Errorf("expected exhausted callback for job-1, got %q", exhaustedKey)
	}
	if exhaustedAttempts != 2 {
		t.Errorf("expected 2 attempts at exhaustion, got %d", exhaustedAttempts)
	}
	if !errors.Is(exhaustedErr, handlerErr) {
		t.Errorf("expected handler error in callback, got %v", exhaustedErr)
	}
	mu.Unlock()

	// The exhausted message is dropped, not retried forever.
	waitFor(t, time.Second, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.Pending == 0 && stats.Inflight == 0
	})
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	var calls atomic.Int32
	handler := func(ctx context.Context, msg *queue.Message) error {
		if calls.Add(1) == 1 {
			panic("handler exploded")
		}
		return nil
	}

	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      1,
		MaxAttempts:  3,
		RetryDelay:   10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	w.Start(ctx)
	defer w.Stop(time.Second)

	if _, err := q.Enqueue(ctx, "job", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// The panic is converted to an error and the message retried; the
	// second delivery succeeds.
	waitFor(t, 2*time.Second, func() bool { return calls.Load() == 2 })

	waitFor(t, time.Second, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.Pending == 0 && stats.Inflight == 0
	})
}

func TestWorker_PerKeySerialization(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	var mu sync.Mutex
	active := make(map[string]int)
	var overlapped atomic.Bool

	handler := func(ctx context.Context, msg *queue.Message) error {
		mu.Lock()
		active[msg.Key]++
		if active[msg.Key] > 1 {
			overlapped.Store(true)
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active[msg.Key]--
		mu.Unlock()
		return nil
	}

	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      4,
		PollInterval: 5 * time.Millisecond,
	})
	w.Start(ctx)
	defer w.Stop(2 * time.Second)

	for i := 0; i < 4; i++ {
		if _, err := q.Enqueue(ctx, "job-a", nil); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if _, err := q.Enqueue(ctx, "job-b", nil); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	waitFor(t, 5*time.Second, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.Pending == 0 && stats.Inflight == 0
	})

	if overlapped.Load() {
		t.Error("two messages with the same key were processed concurrently")
	}
}

func TestWorker_StopWaitsForHandlers(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	handler := func(ctx context.Context, msg *queue.Message) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	}

	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      1,
		PollInterval: 5 * time.Millisecond,
	})
	w.Start(ctx)

	if _, err := q.Enqueue(ctx, "job", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	<-started

	stopDone := make(chan struct{})
	go func() {
		w.Stop(2 * time.Second)
		close(stopDone)
	}()

	// Stop must not return while the handler is still running.
	select {
	case <-stopDone:
		t.Fatal("Stop returned before the in-progress handler finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the handler finished")
	}

	if !finished.Load() {
		t.Error("handler did not run to completion before Stop returned")
	}
}

// fakeMetrics records worker observations.
type fakeMetrics struct {
	mu        sync.Mutex
	delivered []int
	settled   []string
}

func (m *fakeMetrics) Delivered(attempt int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, attempt)
}

func (m *fakeMetrics) Settled(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled = append(m.settled, outcome)
}

func (m *fakeMetrics) SetDepth(pending, inflight int) {}

var _ queue.Metrics = (*fakeMetrics)(nil)

func TestWorker_RecordsDeliveryMetrics(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	var calls atomic.Int32
	handler := func(ctx context.Context, msg *queue.Message) error {
		if calls.Add(1) == 1 {
			return errors.New("transient failure")
		}
		return nil
	}

	m := &fakeMetrics{}
	w := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      1,
		MaxAttempts:  3,
		RetryDelay:   10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		Metrics:      m,
	})
	w.Start(ctx)
	defer w.Stop(time.Second)

	if _, err := q.Enqueue(ctx, "job", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.settled) == 2
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.delivered) != 2 || m.delivered[0] != 1 || m.delivered[1] != 2 {
		t.Errorf("delivered attempts = %v, want [1 2]", m.delivered)
	}
	if m.settled[0] != "retried" || m.settled[1] != "acked" {
		t.Errorf("settled outcomes = %v, want [retried acked]", m.settled)
	}
}

func TestWorker_StartIdempotent(t *testing.T) {
	ctx := context.Background()
	q := memory.New()
	defer q.Close()

	w := queue.NewWorker(q, func(ctx context.Context, msg *queue.Message) error {
		return nil
	}, queue.WorkerConfig{Workers: 1, PollInterval: 5 * time.Millisecond})

	w.Start(ctx)
	w.Start(ctx) // second call is a no-op
	w.Stop(time.Second)
}
