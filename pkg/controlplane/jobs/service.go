// Package jobs is the control surface for candidate-import jobs: it turns
// an assembled upload plus a field mapping into a queued job, and serves
// status, history, pause and resume.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/internal/telemetry"
	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/ingest"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/rosterhq/roster/pkg/queue"
	"github.com/rosterhq/roster/pkg/tabular"
)

var (
	// ErrMissingStorageKey indicates a create request without a file path.
	ErrMissingStorageKey = errors.New("storage key is required")

	// ErrEmptyMapping indicates a create request without any field mapping.
	ErrEmptyMapping = errors.New("field mapping is required")

	// ErrUnknownField indicates a mapping key that is not a candidate field.
	ErrUnknownField = errors.New("unknown destination field")

	// ErrSourceNotFound indicates the storage key does not resolve to an
	// uploaded object.
	ErrSourceNotFound = errors.New("source object not found")
)

// Service coordinates job persistence and the work queue.
type Service struct {
	store   models.JobStore
	queue   queue.Queue
	objects objstore.Store
}

// New creates a job service.
func New(store models.JobStore, q queue.Queue, objects objstore.Store) *Service {
	return &Service{
		store:   store,
		queue:   q,
		objects: objects,
	}
}

// CreateParams describes a new import job.
type CreateParams struct {
	// UserID is the owner; all later operations are scoped to it.
	UserID string

	// StorageKey is the assembled object's key from the upload flow.
	StorageKey string

	// FileName is the original upload file name, kept for display.
	FileName string

	// Mapping assigns destination candidate fields to source header names.
	Mapping map[string]string
}

// Create validates the mapping, locates the header row with the mapping's
// header names, persists the job and queues its first run.
//
// Layout detection runs here, once, so every later run (including resumes
// after a daemon restart) parses the source exactly the same way.
func (s *Service) Create(ctx context.Context, p CreateParams) (job *models.UploadJob, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanJobCreate,
		telemetry.UserID(p.UserID), telemetry.StorageKey(p.StorageKey))
	defer func() { telemetry.End(span, err) }()

	if p.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if p.StorageKey == "" {
		return nil, ErrMissingStorageKey
	}
	if len(p.Mapping) == 0 {
		return nil, ErrEmptyMapping
	}
	for field := range p.Mapping {
		if !models.IsCandidateField(field) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
	}

	exists, err := s.objects.Exists(ctx, p.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check source object %s: %w", p.StorageKey, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, p.StorageKey)
	}

	expected := make([]string, 0, len(p.Mapping))
	for _, header := range p.Mapping {
		if header != "" {
			expected = append(expected, header)
		}
	}
	layout, err := tabular.Sniff(ctx, s.objects, p.StorageKey, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to detect layout of %s: %w", p.StorageKey, err)
	}

	job = &models.UploadJob{
		UserID:         p.UserID,
		Filename:       p.FileName,
		StorageKey:     p.StorageKey,
		State:          models.JobStateMappingPending,
		HeaderRowIndex: layout.HeaderRow,
		Delimiter:      string(layout.Delimiter),
	}
	if err := job.SetMapping(p.Mapping); err != nil {
		return nil, fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := job.SetHeaders(layout.Headers); err != nil {
		return nil, fmt.Errorf("failed to encode headers: %w", err)
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if _, err := ingest.EnqueueTask(ctx, s.queue, ingest.TaskPayload{JobID: job.ID}); err != nil {
		// The job record exists but no work is queued; a resume request
		// re-enqueues it, so surface the job id alongside the error.
		logger.Error("Job created but not queued",
			logger.KeyJobID, job.ID,
			logger.KeyError, err,
		)
		return job, fmt.Errorf("job %s created but not queued: %w", job.ID, err)
	}

	logger.Info("Job created",
		logger.KeyJobID, job.ID,
		logger.KeyUserID, p.UserID,
		logger.KeyKey, p.StorageKey,
		logger.KeyHeaderRow, layout.HeaderRow,
		logger.KeyDelimiter, string(layout.Delimiter),
		logger.KeyColumns, len(layout.Headers),
	)
	return job, nil
}

// Status returns a job owned by userID.
//
// Jobs belonging to other users are reported as not found rather than
// forbidden, so job ids cannot be probed across tenants.
func (s *Service) Status(ctx context.Context, userID, jobID string) (*models.UploadJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, models.ErrJobNotFound
	}
	return job, nil
}

// History returns the user's jobs, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]*models.UploadJob, error) {
	return s.store.ListJobsByUser(ctx, userID)
}

// Pause requests that a running job stop at its next batch boundary.
// Idempotent: re-pausing a pausing or finished job succeeds without effect.
func (s *Service) Pause(ctx context.Context, userID, jobID string) (*models.UploadJob, error) {
	if _, err := s.Status(ctx, userID, jobID); err != nil {
		return nil, err
	}
	if err := s.store.RequestPause(ctx, jobID); err != nil {
		return nil, fmt.Errorf("failed to request pause for job %s: %w", jobID, err)
	}
	logger.Info("Pause requested", logger.KeyJobID, jobID, logger.KeyUserID, userID)
	return s.store.GetJob(ctx, jobID)
}

// Resume re-queues a paused, failed or completed job from its last
// persisted offsets. Resuming a completed job re-reads nothing and simply
// completes again.
func (s *Service) Resume(ctx context.Context, userID, jobID string) (*models.UploadJob, error) {
	if _, err := s.Status(ctx, userID, jobID); err != nil {
		return nil, err
	}
	job, err := s.store.PrepareResume(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if _, err := ingest.EnqueueTask(ctx, s.queue, ingest.TaskPayload{
		JobID:           jobID,
		ResumeFrom:      job.ResumeFrom,
		InitialInserted: job.RowsInserted,
		InitialRejected: job.RowsRejected,
	}); err != nil {
		return nil, err
	}

	logger.Info("Job resumed",
		logger.KeyJobID, jobID,
		logger.KeyUserID, userID,
		logger.KeyResumeFrom, job.ResumeFrom,
	)
	return job, nil
}
