package controlplane

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/controlplane/store"
	objmemory "github.com/rosterhq/roster/pkg/objstore/memory"
	"github.com/rosterhq/roster/pkg/queue"
	queuememory "github.com/rosterhq/roster/pkg/queue/memory"
	uploadmemory "github.com/rosterhq/roster/pkg/upload/memory"
)

func testOptions(dbPath string) *Options {
	return &Options{
		Database: &store.Config{
			Type:   store.DatabaseTypeSQLite,
			SQLite: store.SQLiteConfig{Path: dbPath},
		},
		Objects:   objmemory.New(),
		Manifests: uploadmemory.New(),
		Queue:     queuememory.New(),
	}
}

func TestNew_ValidatesOptions(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, nil); err == nil {
		t.Error("expected error for nil options")
	}

	opts := testOptions(":memory:")
	opts.Database = nil
	if _, err := New(ctx, opts); err == nil {
		t.Error("expected error for missing database config")
	}

	opts = testOptions(":memory:")
	opts.Objects = nil
	if _, err := New(ctx, opts); err == nil {
		t.Error("expected error for missing object store")
	}

	opts = testOptions(":memory:")
	opts.Queue = nil
	if _, err := New(ctx, opts); err == nil {
		t.Error("expected error for missing queue")
	}
}

func TestNew_WiresComponents(t *testing.T) {
	cp, err := New(context.Background(), testOptions(":memory:"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cp.Close()

	if cp.Store() == nil {
		t.Error("expected a store")
	}
	if cp.Jobs() == nil {
		t.Error("expected a job service")
	}
	if cp.Assembler() == nil {
		t.Error("expected an assembler")
	}
	if cp.Runtime() == nil {
		t.Error("expected a runtime")
	}
	if cp.APIServer() != nil {
		t.Error("expected no API server without API config")
	}
}

// A job left in PROCESSING by a crash must be parked in PAUSED on the next
// start, so the redelivered queue task can claim it again.
func TestNew_RecoversOrphanedJobs(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "roster.db")

	// First process: claim a job, then "crash" without finishing it.
	first, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	job := &models.UploadJob{
		UserID:     "crash-test",
		Filename:   "leads.csv",
		StorageKey: "uploads/crash-test/1724572800000_leads.csv",
	}
	if err := job.SetMapping(map[string]string{"email": "Email"}); err != nil {
		t.Fatalf("SetMapping: %v", err)
	}
	if err := first.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := first.ClaimJob(ctx, job.ID); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if err := first.UpdateJobProgress(ctx, job.ID, 6000, 5500, 500); err != nil {
		t.Fatalf("UpdateJobProgress: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Second process: New parks the orphan.
	cp, err := New(ctx, testOptions(dbPath))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cp.Close()

	got, err := cp.Store().GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != models.JobStatePaused {
		t.Errorf("State = %s, want PAUSED", got.State)
	}
	if got.ResumeFrom != 6000 {
		t.Errorf("ResumeFrom = %d, want 6000", got.ResumeFrom)
	}
}

func TestClose_ReleasesQueue(t *testing.T) {
	cp, err := New(context.Background(), testOptions(":memory:"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := cp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = cp.queue.Enqueue(context.Background(), "job-1", []byte(`{}`))
	if !errors.Is(err, queue.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}
