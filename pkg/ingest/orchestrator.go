package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/internal/telemetry"
	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/rosterhq/roster/pkg/tabular"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

const (
	// DefaultBatchSize is the number of accepted rows buffered before a
	// datastore write.
	DefaultBatchSize = 2000

	// DefaultProgressInterval is how often live counters are persisted
	// while a run is between batch boundaries.
	DefaultProgressInterval = 2 * time.Second

	// DefaultInsertTimeout bounds a single batch insert. A batch that
	// blows the deadline is counted rejected and the run continues.
	DefaultInsertTimeout = 30 * time.Second
)

// ErrInterrupted reports that a run stopped because its context was
// canceled. The run has already flushed its batch, persisted counters and
// parked the job in PAUSED; the caller decides whether to requeue it.
var ErrInterrupted = errors.New("ingestion interrupted")

// Config holds orchestrator tuning.
type Config struct {
	// BatchSize is the accepted-row buffer flushed per datastore write.
	BatchSize int

	// ProgressInterval is the counter persistence cadence.
	ProgressInterval time.Duration

	// InsertTimeout bounds one batch insert.
	InsertTimeout time.Duration

	// Strict disables the salvage heuristics so rows are judged exactly
	// as mapped.
	Strict bool
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	if c.InsertTimeout <= 0 {
		c.InsertTimeout = DefaultInsertTimeout
	}
}

// ============================================================================
// ORCHESTRATOR
// ============================================================================

// Orchestrator runs ingestion jobs to a terminal state. It owns the full
// row path for one run: claim the job, stream and parse the source object,
// clean and validate rows, insert batches, and keep counters and job state
// current. Safe for concurrent use; per-job exclusivity comes from ClaimJob.
type Orchestrator struct {
	jobs       models.JobStore
	candidates models.CandidateStore
	objects    objstore.Store
	cfg        Config
	metrics    Metrics
}

// New creates an orchestrator. metrics may be nil.
func New(jobs models.JobStore, candidates models.CandidateStore, objects objstore.Store, cfg Config, metrics Metrics) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		jobs:       jobs,
		candidates: candidates,
		objects:    objects,
		cfg:        cfg,
		metrics:    metrics,
	}
}

// RunOptions seeds a run's counters. Zero values start from the top of the
// data rows; a resume passes the offsets recorded when the job stopped.
type RunOptions struct {
	ResumeFrom      int64
	InitialInserted int64
	InitialRejected int64
}

// Run executes one ingestion run for jobID.
//
// A nil return means the run reached a terminal outcome (including
// domain failures recorded on the job) and the task can be acknowledged.
// ErrInterrupted means the job was parked in PAUSED because ctx was
// canceled. Any other error is transient: nothing irreversible happened
// and the task is safe to retry.
func (o *Orchestrator) Run(ctx context.Context, jobID string, opts RunOptions) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			logger.Warn("Ignoring task for unknown job", logger.KeyJobID, jobID)
			return nil
		}
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	// Validate inputs before claiming so a doomed job fails in one shot
	// instead of burning retry attempts.
	headers, err := job.GetHeaders()
	if err != nil || len(headers) == 0 {
		return o.failBeforeClaim(ctx, jobID, "Stored headers missing or invalid")
	}
	mapping, err := job.GetMapping()
	if err != nil || len(mapping) == 0 {
		return o.failBeforeClaim(ctx, jobID, "Field mapping missing or invalid")
	}

	exists, err := o.objects.Exists(ctx, job.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to check source object %s: %w", job.StorageKey, err)
	}
	if !exists {
		return o.failBeforeClaim(ctx, jobID, fmt.Sprintf("Source file not found: %s", job.StorageKey))
	}

	job, err = o.jobs.ClaimJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			logger.Warn("Ignoring task for unknown job", logger.KeyJobID, jobID)
			return nil
		}
		// Another worker holds the job, or a crash left it in
		// PROCESSING. Retrying lets the exhaustion path mark it
		// failed so the user can resume.
		return fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}

	if o.metrics != nil {
		o.metrics.JobStarted()
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIngestRun,
		telemetry.JobID(jobID), telemetry.ResumeFrom(opts.ResumeFrom))
	start := time.Now()
	outcome, err := o.process(ctx, job, headers, mapping, opts)
	telemetry.End(span, err)
	if o.metrics != nil {
		o.metrics.JobFinished(outcome, time.Since(start))
	}
	return err
}

// failBeforeClaim marks a job failed for an input problem detected before
// the claim. ErrInvalidTransition is absorbed: a job that cannot fail from
// its current state (say, a resumed COMPLETED job whose source is gone)
// keeps that state.
func (o *Orchestrator) failBeforeClaim(ctx context.Context, jobID, msg string) error {
	logger.Error("Job rejected before processing", logger.KeyJobID, jobID, logger.KeyError, msg)
	if err := o.jobs.MarkJobFailed(ctx, jobID, msg); err != nil && !errors.Is(err, models.ErrInvalidTransition) {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	return nil
}

// ============================================================================
// RUN LOOP
// ============================================================================

// process streams the source object and drives the row loop. The job has
// been claimed; from here every exit records a terminal state on the job.
// Returns the outcome label alongside Run's error contract.
func (o *Orchestrator) process(ctx context.Context, job *models.UploadJob, headers []string, mapping map[string]string, opts RunOptions) (string, error) {
	// Counter snapshots in a queued payload can lag the row: the job's
	// values only ever grow, so take the larger of the two.
	seen := max(opts.ResumeFrom, job.RowsSeen)
	inserted := max(opts.InitialInserted, job.RowsInserted)
	rejected := max(opts.InitialRejected, job.RowsRejected)

	delimiter := byte(',')
	if job.Delimiter != "" {
		delimiter = job.Delimiter[0]
	}
	// Skip the preamble, the header line itself, and the data rows a
	// previous run already consumed.
	skip := job.HeaderRowIndex + 1 + int(seen)

	rc, err := o.objects.GetRange(ctx, job.StorageKey, 0, -1)
	if err != nil {
		return "failed", o.failRun(ctx, job.ID, seen, inserted, rejected, fmt.Sprintf("Failed to open source file: %v", err))
	}
	defer rc.Close()

	parser := tabular.NewParser(rc, tabular.Options{
		Delimiter:        delimiter,
		SkipLeadingLines: skip,
	})
	index := tabular.NewHeaderIndex(headers)
	cleanOpts := CleanOptions{Salvage: !o.cfg.Strict}

	logger.Info("Job processing started",
		logger.KeyJobID, job.ID,
		logger.KeyKey, job.StorageKey,
		logger.KeyDelimiter, string(delimiter),
		logger.KeyHeaderRow, job.HeaderRowIndex,
		logger.KeyResumeFrom, seen,
		logger.KeyBatchSize, o.cfg.BatchSize,
	)

	batch := make([]*models.Candidate, 0, o.cfg.BatchSize)
	lastPersist := time.Now()
	arityWarned := false

	for {
		select {
		case <-ctx.Done():
			return "paused", o.interrupt(ctx, job.ID, batch, seen, inserted, rejected)
		default:
		}

		record, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			inserted, rejected = o.insertBatch(ctx, job.ID, batch, inserted, rejected)
			return "failed", o.failRun(ctx, job.ID, seen, inserted, rejected, fmt.Sprintf("Parser error at row %d: %v", seen+1, err))
		}
		seen++

		if len(record) != index.Len() {
			if !arityWarned {
				logger.Warn("Row width does not match header count; rejecting such rows",
					logger.KeyJobID, job.ID,
					logger.KeyColumns, index.Len(),
					"row_columns", len(record),
					logger.KeyRowsSeen, seen,
				)
				arityWarned = true
			}
			rejected++
			continue
		}

		c := buildCandidate(job, mapping, index, record)
		if Clean(c, cleanOpts) {
			batch = append(batch, c)
		} else {
			rejected++
		}

		if len(batch) >= o.cfg.BatchSize {
			inserted, rejected = o.insertBatch(ctx, job.ID, batch, inserted, rejected)
			batch = batch[:0]
			o.persistProgress(ctx, job.ID, seen, inserted, rejected)
			lastPersist = time.Now()

			// Pause requests are honored at batch boundaries.
			fresh, err := o.jobs.GetJob(ctx, job.ID)
			if err == nil && fresh.PauseRequested {
				if err := o.jobs.MarkJobPaused(ctx, job.ID, seen); err != nil {
					return "paused", fmt.Errorf("failed to pause job %s: %w", job.ID, err)
				}
				logger.Info("Job paused",
					logger.KeyJobID, job.ID,
					logger.KeyRowsSeen, seen,
					logger.KeyRowsInserted, inserted,
					logger.KeyRowsRejected, rejected,
				)
				return "paused", nil
			}
			continue
		}

		if time.Since(lastPersist) >= o.cfg.ProgressInterval {
			o.persistProgress(ctx, job.ID, seen, inserted, rejected)
			lastPersist = time.Now()
		}
	}

	inserted, rejected = o.insertBatch(ctx, job.ID, batch, inserted, rejected)
	o.persistProgress(context.WithoutCancel(ctx), job.ID, seen, inserted, rejected)

	if err := o.jobs.MarkJobCompleted(ctx, job.ID); err != nil {
		return "failed", fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}
	logger.Info("Job completed",
		logger.KeyJobID, job.ID,
		logger.KeyRowsSeen, seen,
		logger.KeyRowsInserted, inserted,
		logger.KeyRowsRejected, rejected,
	)
	return "completed", nil
}

// ============================================================================
// BATCH AND STATE HELPERS
// ============================================================================

// insertBatch writes one batch and returns the updated counters. The write
// runs under its own timeout, detached from run cancellation so an
// interrupt still flushes. A failed or timed-out batch is counted rejected
// and the run carries on.
func (o *Orchestrator) insertBatch(ctx context.Context, jobID string, batch []*models.Candidate, inserted, rejected int64) (int64, int64) {
	if len(batch) == 0 {
		return inserted, rejected
	}
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.InsertTimeout)
	defer cancel()

	start := time.Now()
	err := o.candidates.InsertCandidates(insertCtx, batch)
	if o.metrics != nil {
		o.metrics.ObserveBatchInsert(len(batch), time.Since(start), err)
	}
	if err != nil {
		rejected += int64(len(batch))
		if o.metrics != nil {
			o.metrics.AddRows("rejected", len(batch))
		}
		logger.Error("Batch insert failed; rows counted as rejected",
			logger.KeyJobID, jobID,
			logger.KeyBatchSize, len(batch),
			logger.KeyError, err,
		)
		return inserted, rejected
	}
	inserted += int64(len(batch))
	if o.metrics != nil {
		o.metrics.AddRows("inserted", len(batch))
	}
	return inserted, rejected
}

// persistProgress best-effort writes the live counters. Progress rows are
// advisory between batch boundaries, so failures are logged, not returned.
func (o *Orchestrator) persistProgress(ctx context.Context, jobID string, seen, inserted, rejected int64) {
	if err := o.jobs.UpdateJobProgress(ctx, jobID, seen, inserted, rejected); err != nil {
		logger.Warn("Failed to persist job progress",
			logger.KeyJobID, jobID,
			logger.KeyRowsSeen, seen,
			logger.KeyError, err,
		)
	}
}

// failRun records a domain failure on a claimed job. Returns nil so the
// task is acknowledged: the failure lives on the job, not in the queue.
func (o *Orchestrator) failRun(ctx context.Context, jobID string, seen, inserted, rejected int64, msg string) error {
	ctx = context.WithoutCancel(ctx)
	o.persistProgress(ctx, jobID, seen, inserted, rejected)
	if err := o.jobs.MarkJobFailed(ctx, jobID, msg); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	logger.Error("Job failed",
		logger.KeyJobID, jobID,
		logger.KeyRowsSeen, seen,
		logger.KeyError, msg,
	)
	return nil
}

// interrupt parks a canceled run in PAUSED after flushing the pending
// batch, then reports ErrInterrupted so the caller can requeue.
func (o *Orchestrator) interrupt(ctx context.Context, jobID string, batch []*models.Candidate, seen, inserted, rejected int64) error {
	ctx = context.WithoutCancel(ctx)
	inserted, rejected = o.insertBatch(ctx, jobID, batch, inserted, rejected)
	o.persistProgress(ctx, jobID, seen, inserted, rejected)
	if err := o.jobs.MarkJobPaused(ctx, jobID, seen); err != nil {
		return fmt.Errorf("failed to park interrupted job %s: %w", jobID, err)
	}
	logger.Info("Job interrupted by shutdown; parked as paused",
		logger.KeyJobID, jobID,
		logger.KeyRowsSeen, seen,
		logger.KeyRowsInserted, inserted,
		logger.KeyRowsRejected, rejected,
	)
	return ErrInterrupted
}

// buildCandidate maps one parsed record into a candidate using the
// field-to-header mapping. Unknown headers and short records contribute
// empty values.
func buildCandidate(job *models.UploadJob, mapping map[string]string, index *tabular.HeaderIndex, record []string) *models.Candidate {
	c := &models.Candidate{
		SourceFile:  job.StorageKey,
		UploadJobID: job.ID,
	}
	for field, header := range mapping {
		if header == "" {
			continue
		}
		if v := index.Value(record, header); v != "" {
			c.SetField(field, v)
		}
	}
	return c
}
