package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/rosterhq/roster/pkg/controlplane/models"
)

// ============================================
// CANDIDATE OPERATIONS
// ============================================

// insertChunkSize bounds the number of rows per INSERT statement. SQLite caps
// bound parameters at 32766 per statement; with ~20 columns per candidate a
// chunk of 500 stays comfortably below that on both backends.
const insertChunkSize = 500

// defaultListLimit and maxListLimit bound candidate listing pages.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// InsertCandidates writes a batch, skipping rows that collide on the primary
// key instead of failing the statement. A nil error means every supplied
// record was attempted; callers must not rely on per-row success counts.
func (s *GORMStore) InsertCandidates(ctx context.Context, candidates []*models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	now := time.Now()
	for _, c := range candidates {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(candidates, insertChunkSize).Error
}

func (s *GORMStore) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.Candidate, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Candidate{})

	if !filter.IncludeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if filter.UploadJobID != "" {
		q = q.Where("upload_job_id = ?", filter.UploadJobID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("full_name LIKE ? OR email LIKE ? OR company LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var candidates []*models.Candidate
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&candidates).Error
	if err != nil {
		return nil, 0, err
	}
	return candidates, total, nil
}

func (s *GORMStore) CountCandidatesByJob(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("upload_job_id = ?", jobID).
		Count(&count).Error
	return count, err
}
