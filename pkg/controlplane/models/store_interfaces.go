package models

import "context"

// JobStore provides the job persistence operations used by the ingest
// orchestrator and the job control service.
//
// Implementations must be safe for concurrent use: status readers poll jobs
// while a worker updates them. Counter updates are monotonic and never
// decrease a persisted value.
type JobStore interface {
	// CreateJob persists a new job. Missing IDs are generated.
	CreateJob(ctx context.Context, job *UploadJob) error

	// GetJob returns a job by ID.
	// Returns ErrJobNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*UploadJob, error)

	// ListJobsByUser returns all jobs for a user, newest first.
	ListJobsByUser(ctx context.Context, userID string) ([]*UploadJob, error)

	// ClaimJob atomically moves a claimable job into PROCESSING and stamps
	// started_at. At most one caller wins; losers get ErrInvalidTransition.
	// Returns ErrJobNotFound if the job doesn't exist.
	ClaimJob(ctx context.Context, id string) (*UploadJob, error)

	// UpdateJobProgress persists the three row counters. Implementations
	// must keep persisted counters non-decreasing.
	UpdateJobProgress(ctx context.Context, id string, seen, inserted, rejected int64) error

	// RequestPause sets the pause flag. Idempotent; a no-op on terminal jobs.
	RequestPause(ctx context.Context, id string) error

	// PrepareResume clears the pause flag, records resume_from = rows_seen
	// and returns the refreshed job. Returns ErrJobNotResumable unless the
	// job is PAUSED, FAILED or COMPLETED.
	PrepareResume(ctx context.Context, id string) (*UploadJob, error)

	// MarkJobPaused finishes a processing run in PAUSED with a resume point.
	MarkJobPaused(ctx context.Context, id string, resumeFrom int64) error

	// MarkJobCompleted finishes a processing run in COMPLETED.
	MarkJobCompleted(ctx context.Context, id string) error

	// MarkJobFailed finishes a processing run in FAILED with an error message.
	MarkJobFailed(ctx context.Context, id string, errMsg string) error
}

// CandidateFilter narrows candidate listings.
type CandidateFilter struct {
	// UploadJobID restricts results to one import job when non-empty.
	UploadJobID string
	// Search matches a substring of full name, email or company.
	Search string
	// IncludeDeleted includes soft-deleted rows.
	IncludeDeleted bool

	Limit  int
	Offset int
}

// CandidateStore provides candidate persistence for the ingest pipeline and
// the read-only query API.
type CandidateStore interface {
	// InsertCandidates writes a batch without failing on per-row conflicts.
	// A nil error means every supplied record was attempted; partial-success
	// counts are not reported.
	InsertCandidates(ctx context.Context, candidates []*Candidate) error

	// ListCandidates returns a filtered page plus the total match count.
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]*Candidate, int64, error)

	// CountCandidatesByJob returns the number of rows a job inserted.
	CountCandidatesByJob(ctx context.Context, jobID string) (int64, error)
}
