// Package runtime owns the moving parts of a running Roster server: the
// ingestion worker pool, the upload manifest sweeper, and the auxiliary
// HTTP servers (API, metrics).
//
// The runtime starts everything together, supervises it while serving, and
// shuts it down in dependency order: the API server first so no new work
// arrives, then the workers with a drain budget so in-flight jobs park
// themselves cleanly, then the metrics server. Closing the underlying
// stores stays with their owner; the runtime only borrows them.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/queue"
	"github.com/rosterhq/roster/pkg/upload"
)

// DefaultShutdownTimeout is the default drain budget for in-flight
// ingestion runs. It matches the batch insert timeout: a run interrupted
// mid-batch needs at most one insert deadline to flush and park.
const DefaultShutdownTimeout = 30 * time.Second

// AuxiliaryServer is the contract the runtime needs from the HTTP servers
// it supervises (API and metrics).
type AuxiliaryServer interface {
	// Start blocks until the context is cancelled or the listener fails.
	Start(ctx context.Context) error
	// Stop drains in-flight requests within the context deadline.
	Stop(ctx context.Context) error
	// Port reports the bound TCP port.
	Port() int
}

// Runtime supervises the server's long-running components.
//
// Components are registered before Serve() and started together. The API
// server is the only component whose failure tears the runtime down:
// without it the daemon is unreachable and restarting is the only fix. A
// metrics server failure is logged and the runtime keeps serving.
type Runtime struct {
	queue     queue.Queue
	worker    *queue.Worker
	assembler *upload.Assembler

	apiServer     AuxiliaryServer
	metricsServer AuxiliaryServer

	shutdownTimeout time.Duration

	serveOnce sync.Once
	served    bool
}

// New creates a runtime over the given components.
//
// worker and assembler may be nil, which disables ingestion and manifest
// sweeping respectively; tests use that to serve the API alone.
func New(q queue.Queue, worker *queue.Worker, assembler *upload.Assembler) *Runtime {
	return &Runtime{
		queue:           q,
		worker:          worker,
		assembler:       assembler,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetShutdownTimeout sets the drain budget for in-flight ingestion runs.
func (r *Runtime) SetShutdownTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.shutdownTimeout = timeout
	}
}

// SetAPIServer registers the REST API server. Must happen before Serve.
func (r *Runtime) SetAPIServer(server AuxiliaryServer) {
	r.register("API", &r.apiServer, server)
}

// SetMetricsServer registers the metrics server. Must happen before Serve.
func (r *Runtime) SetMetricsServer(server AuxiliaryServer) {
	r.register("metrics", &r.metricsServer, server)
}

func (r *Runtime) register(name string, slot *AuxiliaryServer, server AuxiliaryServer) {
	if r.served {
		panic("runtime: server registered after Serve")
	}
	*slot = server
	if server != nil {
		logger.Info("auxiliary server registered", "server", name, "port", server.Port())
	}
}

// Serve starts the workers and auxiliary servers, and blocks until shutdown.
// A second call is a no-op returning nil.
func (r *Runtime) Serve(ctx context.Context) error {
	var err error
	r.serveOnce.Do(func() {
		r.served = true
		err = r.serve(ctx)
	})
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("runtime starting")

	// Workers and the sweeper get their own context so shutdown can stop
	// them even when serve exits for a reason other than ctx, like an API
	// server failure.
	runCtx, stopRun := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRun()

	if r.assembler != nil {
		go r.assembler.RunSweeper(runCtx)
	}
	if r.worker != nil {
		r.worker.Start(runCtx)
	}

	// A metrics listener failure is logged but does not stop the runtime.
	if r.metricsServer != nil {
		go func() {
			if err := r.metricsServer.Start(runCtx); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	// The API server is load-bearing: its failure ends Serve.
	apiFailed := make(chan error, 1)
	if r.apiServer != nil {
		go func() {
			if err := r.apiServer.Start(ctx); err != nil {
				apiFailed <- err
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("runtime shutting down", "reason", ctx.Err())
		shutdownErr = ctx.Err()
	case err := <-apiFailed:
		logger.Error("API server failed, shutting the runtime down", "error", err)
		shutdownErr = fmt.Errorf("API server: %w", err)
	}

	r.shutdown(stopRun)

	logger.Info("runtime stopped")
	return shutdownErr
}

// shutdown stops the components in dependency order.
func (r *Runtime) shutdown(stopRun context.CancelFunc) {
	// Stop the API server first so no new uploads or jobs arrive while
	// workers drain.
	r.stopServer("API", r.apiServer)

	// Cancel the run context, then wait for in-flight jobs to park. A run
	// that sees the cancellation flushes its batch, records its offsets
	// and pauses the job; the drain budget covers that final flush. The
	// queue stays open through the drain because parked jobs requeue
	// themselves for the next start.
	stopRun()
	if r.worker != nil {
		logger.Info("draining ingestion workers", "timeout", r.shutdownTimeout)
		r.worker.Stop(r.shutdownTimeout)
	}

	// Metrics goes last; it keeps exporting through the drain.
	r.stopServer("metrics", r.metricsServer)
}

// stopServer shuts an auxiliary server down with a bounded deadline.
func (r *Runtime) stopServer(name string, server AuxiliaryServer) {
	if server == nil {
		return
	}
	logger.Debug("stopping auxiliary server", "server", name)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("auxiliary server shutdown error", "server", name, "error", err)
	}
}
