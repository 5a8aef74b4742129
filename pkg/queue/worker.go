package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rosterhq/roster/internal/logger"
)

// ExhaustedFunc is called when a message fails its final delivery attempt,
// just before the message is dropped from the queue. err is the handler
// error from that attempt.
type ExhaustedFunc func(ctx context.Context, msg *Message, err error)

// Worker pulls messages from a Queue and runs them through a Handler on a
// pool of goroutines.
//
// The queue's per-key delivery guarantee means the pool never runs two
// messages with the same key concurrently, regardless of pool size. Retry
// backoff doubles the configured delay on every failed attempt.
type Worker struct {
	queue   Queue
	handler Handler

	// exhausted is invoked when a message runs out of attempts (optional).
	exhausted ExhaustedFunc

	metrics Metrics

	workers      int
	maxAttempts  int
	retryDelay   time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	started bool

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// WorkerConfig holds configuration for the worker pool.
type WorkerConfig struct {
	// Workers is the number of concurrent handler goroutines. Default: 4
	Workers int

	// MaxAttempts is the delivery budget per message. Default: 3
	MaxAttempts int

	// RetryDelay is the backoff before the first redelivery; doubled on
	// each subsequent failure. Default: 2s
	RetryDelay time.Duration

	// PollInterval is the idle polling interval. Default: 500ms
	PollInterval time.Duration

	// Exhausted is called when a message fails its final attempt (optional).
	Exhausted ExhaustedFunc

	// Metrics receives delivery and depth observations (optional).
	Metrics Metrics
}

// NewWorker creates a worker pool over the given queue.
func NewWorker(q Queue, handler Handler, cfg WorkerConfig) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}

	return &Worker{
		queue:        q,
		handler:      handler,
		exhausted:    cfg.Exhausted,
		metrics:      cfg.Metrics,
		workers:      cfg.Workers,
		maxAttempts:  cfg.MaxAttempts,
		retryDelay:   cfg.RetryDelay,
		pollInterval: cfg.PollInterval,
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	logger.Info("Starting queue workers", "workers", w.workers, "max_attempts", w.maxAttempts)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}

	if w.metrics != nil {
		go w.pollDepth(ctx)
	}

	// Monitor goroutine to close stoppedCh when all workers exit
	go func() {
		w.wg.Wait()
		close(w.stoppedCh)
	}()
}

// Stop signals the workers to stop and waits for in-progress handlers to
// finish, up to timeout. Messages still inflight at timeout are redelivered
// when the queue reopens.
func (w *Worker) Stop(timeout time.Duration) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	logger.Info("Stopping queue workers")

	close(w.stopCh)

	select {
	case <-w.stoppedCh:
		logger.Info("Queue workers stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("Queue worker stop timed out")
	}
}

// run is the per-goroutine dequeue loop.
func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.queue.Dequeue(ctx)
		if err != nil {
			switch err {
			case ErrEmpty:
				// Nothing deliverable; idle until the next poll
				select {
				case <-w.stopCh:
					return
				case <-ctx.Done():
					return
				case <-time.After(w.pollInterval):
				}
			case ErrClosed:
				return
			default:
				if ctx.Err() != nil {
					return
				}
				logger.Error("Queue dequeue failed", "worker", id, "error", err)
				select {
				case <-w.stopCh:
					return
				case <-ctx.Done():
					return
				case <-time.After(w.pollInterval):
				}
			}
			continue
		}

		w.process(ctx, id, msg)
	}
}

// process runs the handler for one message and settles it.
func (w *Worker) process(ctx context.Context, id int, msg *Message) {
	logger.Debug("Processing message", "worker", id, "seq", msg.Seq, "key", msg.Key, "attempt", msg.Attempts)
	if w.metrics != nil {
		w.metrics.Delivered(msg.Attempts)
	}

	err := w.handle(ctx, msg)
	if err == nil {
		if ackErr := w.queue.Ack(ctx, msg.Seq); ackErr != nil {
			logger.Error("Failed to ack message", "seq", msg.Seq, "key", msg.Key, "error", ackErr)
		}
		w.settled("acked")
		return
	}

	if msg.Attempts >= w.maxAttempts {
		logger.Error("Message failed final attempt, dropping",
			"seq", msg.Seq, "key", msg.Key, "attempts", msg.Attempts, "error", err)
		if w.exhausted != nil {
			w.exhausted(ctx, msg, err)
		}
		if ackErr := w.queue.Ack(ctx, msg.Seq); ackErr != nil {
			logger.Error("Failed to drop exhausted message", "seq", msg.Seq, "key", msg.Key, "error", ackErr)
		}
		w.settled("exhausted")
		return
	}

	delay := w.backoff(msg.Attempts)
	logger.Warn("Message failed, scheduling retry",
		"seq", msg.Seq, "key", msg.Key, "attempt", msg.Attempts,
		"max_attempts", w.maxAttempts, "retry_in", delay, "error", err)

	if nackErr := w.queue.Nack(ctx, msg.Seq, delay); nackErr != nil {
		logger.Error("Failed to nack message", "seq", msg.Seq, "key", msg.Key, "error", nackErr)
	}
	w.settled("retried")
}

func (w *Worker) settled(outcome string) {
	if w.metrics != nil {
		w.metrics.Settled(outcome)
	}
}

// depthInterval is how often the queue depth gauges are refreshed.
const depthInterval = 15 * time.Second

// pollDepth periodically snapshots queue depth into the metrics gauges.
// Only started when metrics are configured.
func (w *Worker) pollDepth(ctx context.Context) {
	ticker := time.NewTicker(depthInterval)
	defer ticker.Stop()

	for {
		if stats, err := w.queue.Stats(ctx); err == nil {
			w.metrics.SetDepth(stats.Pending, stats.Inflight)
		}
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// handle invokes the handler, converting panics into errors so a wedged job
// cannot take the worker down.
func (w *Worker) handle(ctx context.Context, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return w.handler(ctx, msg)
}

// backoff returns the redelivery delay after the given attempt count:
// retryDelay doubled per prior attempt.
func (w *Worker) backoff(attempts int) time.Duration {
	delay := w.retryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}
