package runtime

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rosterhq/roster/pkg/queue"
	queuememory "github.com/rosterhq/roster/pkg/queue/memory"
)

// stubServer implements AuxiliaryServer for lifecycle tests.
type stubServer struct {
	port     int
	startErr error

	started atomic.Bool
	stopped atomic.Bool
}

func (s *stubServer) Start(ctx context.Context) error {
	s.started.Store(true)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *stubServer) Stop(ctx context.Context) error {
	s.stopped.Store(true)
	return nil
}

func (s *stubServer) Port() int {
	return s.port
}

func TestRuntime_ServeStopsOnContextCancel(t *testing.T) {
	api := &stubServer{port: 8080}
	rt := New(queuememory.New(), nil, nil)
	rt.SetAPIServer(api)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- rt.Serve(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}

	if !api.started.Load() {
		t.Error("Expected API server to be started")
	}
	if !api.stopped.Load() {
		t.Error("Expected API server to be stopped during shutdown")
	}
}

func TestRuntime_APIServerFailureTearsDown(t *testing.T) {
	api := &stubServer{port: 8080, startErr: errors.New("bind: address already in use")}
	metricsServer := &stubServer{port: 9090}

	rt := New(queuememory.New(), nil, nil)
	rt.SetAPIServer(api)
	rt.SetMetricsServer(metricsServer)

	err := rt.Serve(context.Background())
	if err == nil {
		t.Fatal("Expected error when API server fails to start")
	}
	if !strings.Contains(err.Error(), "API server error") {
		t.Errorf("Expected API server error, got %v", err)
	}

	if !metricsServer.stopped.Load() {
		t.Error("Expected metrics server to be stopped when API server fails")
	}
}

func TestRuntime_ServeOnlyOnce(t *testing.T) {
	rt := New(queuememory.New(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rt.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled from first Serve, got %v", err)
	}

	// Second call is a no-op and must not block or restart anything.
	if err := rt.Serve(ctx); err != nil {
		t.Errorf("Expected nil from second Serve, got %v", err)
	}
}

func TestRuntime_SetAPIServerAfterServePanics(t *testing.T) {
	rt := New(queuememory.New(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = rt.Serve(ctx)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when setting API server after Serve")
		}
	}()
	rt.SetAPIServer(&stubServer{port: 8080})
}

func TestRuntime_DrainsWorkerOnShutdown(t *testing.T) {
	q := queuememory.New()

	var handled atomic.Int32
	var sawCancel atomic.Bool
	handler := func(ctx context.Context, msg *queue.Message) error {
		handled.Add(1)
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
			return nil
		case <-time.After(10 * time.Second):
			return errors.New("handler was never cancelled")
		}
	}
	worker := queue.NewWorker(q, handler, queue.WorkerConfig{
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
	})

	if _, err := q.Enqueue(context.Background(), "job-1", []byte(`{}`)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	rt := New(q, worker, nil)
	rt.SetShutdownTimeout(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rt.Serve(ctx)
	}()

	// Give the worker time to pick up the message, then shut down.
	deadline := time.Now().Add(2 * time.Second)
	for handled.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if handled.Load() == 0 {
		t.Fatal("Worker never picked up the queued message")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}

	if !sawCancel.Load() {
		t.Error("Expected in-flight handler to observe cancellation during drain")
	}
}
