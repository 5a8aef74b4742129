package store

import (
	"context"
	"fmt"

	"github.com/rosterhq/roster/pkg/controlplane/models"
)

// Healthcheck pings the database; readiness probes call this.
func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

var (
	_ Store                 = (*GORMStore)(nil)
	_ models.JobStore       = (*GORMStore)(nil)
	_ models.CandidateStore = (*GORMStore)(nil)
)
