// Package controlplane provides the control plane for Roster.
//
// The control plane manages:
//   - Persistent job and candidate records via Store
//   - Chunked upload assembly and the durable job queue
//   - The ingestion worker pool and manifest sweeper via Runtime
//   - REST API for upload and job operations via API Server
//
// Usage:
//
//	cp, err := controlplane.New(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cp.Close()
//
//	err = cp.Runtime().Serve(ctx)
package controlplane

import (
	"context"
	"fmt"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/controlplane/api"
	"github.com/rosterhq/roster/pkg/controlplane/api/handlers"
	"github.com/rosterhq/roster/pkg/controlplane/jobs"
	"github.com/rosterhq/roster/pkg/controlplane/runtime"
	"github.com/rosterhq/roster/pkg/controlplane/store"
	"github.com/rosterhq/roster/pkg/ingest"
	"github.com/rosterhq/roster/pkg/metrics"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/rosterhq/roster/pkg/queue"
	"github.com/rosterhq/roster/pkg/upload"
)

// ControlPlane is the central management component for Roster.
//
// It owns and coordinates:
//   - Store: persistent jobs and candidates (SQLite/PostgreSQL)
//   - Assembler: chunked upload assembly over the object store
//   - Jobs: the import-job control surface
//   - Runtime: worker pool, sweeper and auxiliary servers
//
// The ControlPlane provides a unified initialization path and ensures
// proper coordination between components. The object store, manifest store
// and queue are built by the caller (see pkg/config factories) and handed
// in; the ControlPlane takes ownership and closes them in Close.
type ControlPlane struct {
	store     *store.GORMStore
	objects   objstore.Store
	manifests upload.ManifestStore
	queue     queue.Queue

	assembler *upload.Assembler
	jobs      *jobs.Service
	runtime   *runtime.Runtime
	apiServer *api.Server
}

// Options configures the ControlPlane.
type Options struct {
	// Database configuration for persistent storage (required)
	Database *store.Config

	// API configuration (optional - nil disables the API server)
	API *api.APIConfig

	// Objects is the object store holding uploaded source files (required)
	Objects objstore.Store

	// Manifests tracks chunk progress for resumable uploads (required)
	Manifests upload.ManifestStore

	// Queue is the durable job queue (required)
	Queue queue.Queue

	// Worker tunes the ingestion worker pool
	Worker queue.WorkerConfig

	// Ingest tunes the row processing pipeline
	Ingest ingest.Config

	// Upload tunes chunk limits and manifest sweeping
	Upload upload.Config
}

// New creates a new ControlPlane with the given options.
//
// This initializes:
//  1. Persistent store (SQLite/PostgreSQL) with migrations
//  2. Crash recovery: jobs orphaned in PROCESSING are parked in PAUSED
//  3. Upload assembler, job service and ingestion worker pool
//  4. API server (if configured)
//
// Metrics instrumentation is picked up automatically when the metrics
// registry was initialized before this call; otherwise the components run
// uninstrumented.
//
// Call Close() when done to release resources.
func New(ctx context.Context, opts *Options) (*ControlPlane, error) {
	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}
	if opts.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	if opts.Objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if opts.Manifests == nil {
		return nil, fmt.Errorf("manifest store is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}

	// Create persistent store
	cpStore, err := store.New(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	// Park jobs a previous process left mid-run. The queue redelivers
	// their tasks once workers start, and a parked job is claimable.
	recovered, err := cpStore.RecoverOrphanedJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover orphaned jobs: %w", err)
	}
	if recovered > 0 {
		logger.Info("Recovered jobs interrupted by previous shutdown", "count", recovered)
	}

	// Upload assembly and ingestion share the object store: the assembler
	// writes source objects, the orchestrator streams them back.
	objects := objstore.WithMetrics(opts.Objects, metrics.NewObjstoreMetrics())
	assembler := upload.NewAssembler(objects, opts.Manifests, opts.Upload, metrics.NewUploadMetrics())
	orchestrator := ingest.New(cpStore, cpStore, objects, opts.Ingest, metrics.NewIngestMetrics())
	jobService := jobs.New(cpStore, opts.Queue, objects)

	workerCfg := opts.Worker
	workerCfg.Exhausted = ingest.NewExhaustedFunc(cpStore)
	workerCfg.Metrics = metrics.NewQueueMetrics()
	worker := queue.NewWorker(opts.Queue, ingest.NewHandler(orchestrator, cpStore, opts.Queue), workerCfg)

	rt := runtime.New(opts.Queue, worker, assembler)

	cp := &ControlPlane{
		store:     cpStore,
		objects:   objects,
		manifests: opts.Manifests,
		queue:     opts.Queue,
		assembler: assembler,
		jobs:      jobService,
		runtime:   rt,
	}

	// Initialize API server if configured
	if opts.API != nil {
		apiServer, err := api.NewServer(*opts.API, api.Deps{
			Uploads:    assembler,
			Jobs:       jobService,
			Candidates: cpStore,
			HealthChecks: []handlers.NamedCheck{
				{Name: "datastore", Checker: cpStore},
				{Name: "queue", Checker: queueCheck{q: opts.Queue}},
				{Name: "objstore", Checker: objstoreCheck{s: objects}},
			},
			HTTPMetrics: metrics.NewHTTPMetrics(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create API server: %w", err)
		}
		cp.apiServer = apiServer
		rt.SetAPIServer(apiServer)
		logger.Info("Control plane API server initialized", "port", opts.API.Port)
	}

	return cp, nil
}

// Store returns the persistent job and candidate store.
func (cp *ControlPlane) Store() *store.GORMStore {
	return cp.store
}

// Jobs returns the import-job control surface.
func (cp *ControlPlane) Jobs() *jobs.Service {
	return cp.jobs
}

// Assembler returns the chunked upload assembler.
func (cp *ControlPlane) Assembler() *upload.Assembler {
	return cp.assembler
}

// Runtime returns the runtime supervising workers and servers.
func (cp *ControlPlane) Runtime() *runtime.Runtime {
	return cp.runtime
}

// APIServer returns the API server (may be nil if not configured).
func (cp *ControlPlane) APIServer() *api.Server {
	return cp.apiServer
}

// Close releases all resources held by the ControlPlane. Call it after
// Serve has returned; closing the queue under a draining worker would turn
// clean pauses into redeliveries.
func (cp *ControlPlane) Close() error {
	var firstErr error

	if err := cp.queue.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close queue: %w", err)
	}
	if err := cp.manifests.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close manifest store: %w", err)
	}
	if err := cp.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close store: %w", err)
	}

	return firstErr
}

// queueCheck adapts the queue's Stats call to the health check interface.
type queueCheck struct {
	q queue.Queue
}

func (c queueCheck) Healthcheck(ctx context.Context) error {
	_, err := c.q.Stats(ctx)
	return err
}

// objstoreCheck probes the object store with an existence check on a fixed
// key. The key does not need to exist; only a backend error counts as
// unhealthy.
type objstoreCheck struct {
	s objstore.Store
}

func (c objstoreCheck) Healthcheck(ctx context.Context) error {
	_, err := c.s.Exists(ctx, ".roster-healthcheck")
	return err
}
