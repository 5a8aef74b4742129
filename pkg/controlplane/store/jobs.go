package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rosterhq/roster/pkg/controlplane/models"
)

// ============================================
// JOB OPERATIONS
// ============================================

// claimableStates are the states a worker may claim a job from. MAPPING_PENDING
// covers first pickup; the other three cover resumed jobs.
var claimableStates = []models.JobState{
	models.JobStateMappingPending,
	models.JobStatePaused,
	models.JobStateFailed,
	models.JobStateCompleted,
}

func (s *GORMStore) CreateJob(ctx context.Context, job *models.UploadJob) error {
	if job.State == "" {
		job.State = models.JobStateMappingPending
	}
	if !job.State.IsValid() {
		return fmt.Errorf("invalid job state %q", job.State)
	}
	job.CreatedAt = time.Now()
	_, err := createWithID(s.db, ctx, job, func(j *models.UploadJob, id string) { j.ID = id }, job.ID, models.ErrDuplicateJob)
	return err
}

func (s *GORMStore) GetJob(ctx context.Context, id string) (*models.UploadJob, error) {
	return getByField[models.UploadJob](s.db, ctx, "id", id, models.ErrJobNotFound)
}

func (s *GORMStore) ListJobsByUser(ctx context.Context, userID string) ([]*models.UploadJob, error) {
	var jobs []*models.UploadJob
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimJob atomically moves a claimable job into PROCESSING. The conditional
// UPDATE is the whole locking story: when two workers race, exactly one sees
// RowsAffected == 1 and the loser gets ErrInvalidTransition.
func (s *GORMStore) ClaimJob(ctx context.Context, id string) (*models.UploadJob, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.UploadJob{}).
		Where("id = ? AND state IN ?", id, claimableStates).
		Updates(map[string]any{
			"state":      models.JobStateProcessing,
			"started_at": now,
			"error":      "",
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing job from one already being processed.
		if _, err := s.GetJob(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidTransition
	}
	return s.GetJob(ctx, id)
}

// RecoverOrphanedJobs parks every PROCESSING job in PAUSED and returns how
// many were moved. Only meaningful at daemon startup, before workers run:
// at that point any PROCESSING row is a leftover from a crash, and parking
// it lets the queue's redelivered task claim the job again and resume from
// the persisted counters.
func (s *GORMStore) RecoverOrphanedJobs(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.UploadJob{}).
		Where("state = ?", models.JobStateProcessing).
		Updates(map[string]any{
			"state":       models.JobStatePaused,
			"resume_from": gorm.Expr("rows_seen"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateJobProgress persists the row counters. The CASE expressions keep
// persisted values non-decreasing even if a stale worker writes after a
// fresher one; this works identically on SQLite and PostgreSQL.
func (s *GORMStore) UpdateJobProgress(ctx context.Context, id string, seen, inserted, rejected int64) error {
	result := s.db.WithContext(ctx).
		Model(&models.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rows_seen":     gorm.Expr("CASE WHEN rows_seen < ? THEN ? ELSE rows_seen END", seen, seen),
			"rows_inserted": gorm.Expr("CASE WHEN rows_inserted < ? THEN ? ELSE rows_inserted END", inserted, inserted),
			"rows_rejected": gorm.Expr("CASE WHEN rows_rejected < ? THEN ? ELSE rows_rejected END", rejected, rejected),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrJobNotFound
	}
	return nil
}

// RequestPause sets the pause flag. Terminal jobs are left untouched, which
// makes the call idempotent and a safe no-op after completion.
func (s *GORMStore) RequestPause(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.UploadJob{}).
		Where("id = ? AND state NOT IN ?", id, []models.JobState{models.JobStateCompleted, models.JobStateFailed}).
		Update("pause_requested", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// No-op if the job exists but is terminal.
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// PrepareResume clears the pause flag, records resume_from = rows_seen and
// returns the refreshed job. The transaction keeps the check-then-update
// race-free against concurrent resume calls.
func (s *GORMStore) PrepareResume(ctx context.Context, id string) (*models.UploadJob, error) {
	var job models.UploadJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&job).Error; err != nil {
			return convertNotFoundError(err, models.ErrJobNotFound)
		}
		if !job.State.CanResume() {
			return models.ErrJobNotResumable
		}
		if err := tx.Model(&job).Updates(map[string]any{
			"pause_requested": false,
			"resume_from":     job.RowsSeen,
		}).Error; err != nil {
			return err
		}
		job.PauseRequested = false
		job.ResumeFrom = job.RowsSeen
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *GORMStore) MarkJobPaused(ctx context.Context, id string, resumeFrom int64) error {
	return s.finishRun(ctx, id, map[string]any{
		"state":           models.JobStatePaused,
		"pause_requested": false,
		"resume_from":     resumeFrom,
	}, []models.JobState{models.JobStateProcessing})
}

func (s *GORMStore) MarkJobCompleted(ctx context.Context, id string) error {
	return s.finishRun(ctx, id, map[string]any{
		"state":           models.JobStateCompleted,
		"pause_requested": false,
		"completed_at":    time.Now(),
		"error":           "",
	}, []models.JobState{models.JobStateProcessing})
}

// MarkJobFailed is allowed from every non-terminal state: a job whose queue
// delivery exhausts its attempts may fail without ever having been claimed.
func (s *GORMStore) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return s.finishRun(ctx, id, map[string]any{
		"state":           models.JobStateFailed,
		"pause_requested": false,
		"completed_at":    time.Now(),
		"error":           errMsg,
	}, []models.JobState{
		models.JobStateMappingPending,
		models.JobStateProcessing,
		models.JobStatePaused,
	})
}

// finishRun applies a terminal-ish update guarded by the set of states the
// transition is legal from.
func (s *GORMStore) finishRun(ctx context.Context, id string, updates map[string]any, from []models.JobState) error {
	result := s.db.WithContext(ctx).
		Model(&models.UploadJob{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return models.ErrInvalidTransition
	}
	return nil
}
