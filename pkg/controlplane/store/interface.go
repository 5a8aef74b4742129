// Package store provides the control plane persistence layer.
//
// This package implements the Store interface for managing upload jobs and
// imported candidate records.
//
// Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (HA-capable)
package store

import (
	"context"

	"github.com/rosterhq/roster/pkg/controlplane/models"
)

// Store provides the control plane persistence interface.
//
// This interface combines job bookkeeping (lifecycle, counters, resume
// points) with candidate batch writes and read-only candidate queries.
//
// Thread Safety: Implementations must be safe for concurrent use from
// multiple goroutines. A worker updating a job's counters and an API handler
// reading the same job must never observe a decreasing counter.
//
// The Store interface supports both SQLite (single-node) and PostgreSQL (HA)
// backends.
type Store interface {
	// ============================================
	// JOB OPERATIONS
	// ============================================

	models.JobStore

	// ============================================
	// CANDIDATE OPERATIONS
	// ============================================

	models.CandidateStore

	// ============================================
	// HEALTH & LIFECYCLE
	// ============================================

	// Healthcheck verifies the store is operational.
	// Returns an error if the store is not healthy.
	Healthcheck(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
