package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/ingest"
	"github.com/rosterhq/roster/pkg/objstore/memory"
	"github.com/rosterhq/roster/pkg/queue"
)

// memJobStore is a minimal in-memory JobStore for service tests.
type memJobStore struct {
	mu     sync.Mutex
	nextID int
	jobs   map[string]*models.UploadJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*models.UploadJob)}
}

func (s *memJobStore) CreateJob(ctx context.Context, job *models.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		s.nextID++
		job.ID = fmt.Sprintf("job-%d", s.nextID)
	}
	job.CreatedAt = time.Now()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memJobStore) GetJob(ctx context.Context, id string) (*models.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *memJobStore) ListJobsByUser(ctx context.Context, userID string) ([]*models.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.UploadJob
	for _, j := range s.jobs {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memJobStore) ClaimJob(ctx context.Context, id string) (*models.UploadJob, error) {
	return nil, models.ErrInvalidTransition
}

func (s *memJobStore) UpdateJobProgress(ctx context.Context, id string, seen, inserted, rejected int64) error {
	return nil
}

func (s *memJobStore) RequestPause(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.ErrJobNotFound
	}
	if !j.State.IsTerminal() {
		j.PauseRequested = true
	}
	return nil
}

func (s *memJobStore) PrepareResume(ctx context.Context, id string) (*models.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	if !j.State.CanResume() {
		return nil, models.ErrJobNotResumable
	}
	j.PauseRequested = false
	j.ResumeFrom = j.RowsSeen
	cp := *j
	return &cp, nil
}

func (s *memJobStore) MarkJobPaused(ctx context.Context, id string, resumeFrom int64) error {
	return nil
}

func (s *memJobStore) MarkJobCompleted(ctx context.Context, id string) error { return nil }

func (s *memJobStore) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return nil
}

var _ models.JobStore = (*memJobStore)(nil)

// memQueue records enqueued payloads and can be told to fail.
type memQueue struct {
	mu       sync.Mutex
	enqueued []queue.Message
	fail     bool
}

func (q *memQueue) Enqueue(ctx context.Context, key string, payload []byte) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return 0, errors.New("queue unavailable")
	}
	q.enqueued = append(q.enqueued, queue.Message{
		Seq:     uint64(len(q.enqueued) + 1),
		Key:     key,
		Payload: payload,
	})
	return uint64(len(q.enqueued)), nil
}

func (q *memQueue) Dequeue(ctx context.Context) (*queue.Message, error) {
	return nil, queue.ErrEmpty
}

func (q *memQueue) Ack(ctx context.Context, seq uint64) error                        { return nil }
func (q *memQueue) Nack(ctx context.Context, seq uint64, delay time.Duration) error  { return nil }
func (q *memQueue) Stats(ctx context.Context) (queue.Stats, error)                   { return queue.Stats{}, nil }
func (q *memQueue) Close() error                                                     { return nil }

var _ queue.Queue = (*memQueue)(nil)

func (q *memQueue) lastPayload(t *testing.T) ingest.TaskPayload {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.enqueued) == 0 {
		t.Fatal("nothing enqueued")
	}
	var p ingest.TaskPayload
	if err := json.Unmarshal(q.enqueued[len(q.enqueued)-1].Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return p
}

func newService(t *testing.T) (*Service, *memJobStore, *memQueue, *memory.Store) {
	t.Helper()
	store := newMemJobStore()
	q := &memQueue{}
	objects := memory.New()
	return New(store, q, objects), store, q, objects
}

func putObject(t *testing.T, objects *memory.Store, key, body string) {
	t.Helper()
	if err := objects.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), "text/csv"); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, store, q, objects := newService(t)
	putObject(t, objects, "uploads/user-1/1_a.csv", "Name,Email\nAda,ada@x.io\n")

	job, err := svc.Create(ctx, CreateParams{
		UserID:     "user-1",
		StorageKey: "uploads/user-1/1_a.csv",
		FileName:   "a.csv",
		Mapping:    map[string]string{"fullName": "Name", "email": "Email"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected a generated job id")
	}
	if job.State != models.JobStateMappingPending {
		t.Errorf("State = %s, want MAPPING_PENDING", job.State)
	}
	if job.HeaderRowIndex != 0 || job.Delimiter != "," {
		t.Errorf("layout = row %d delim %q, want row 0 delim ,", job.HeaderRowIndex, job.Delimiter)
	}
	headers, err := job.GetHeaders()
	if err != nil || len(headers) != 2 || headers[0] != "Name" {
		t.Errorf("headers = %v (%v), want [Name Email]", headers, err)
	}

	if _, err := store.GetJob(ctx, job.ID); err != nil {
		t.Errorf("job not persisted: %v", err)
	}
	p := q.lastPayload(t)
	if p.JobID != job.ID || p.ResumeFrom != 0 {
		t.Errorf("payload = %+v, want fresh task for %s", p, job.ID)
	}
	if q.enqueued[0].Key != job.ID {
		t.Errorf("queue key = %q, want the job id", q.enqueued[0].Key)
	}
}

func TestCreateFindsHeaderRowViaMapping(t *testing.T) {
	ctx := context.Background()
	svc, _, _, objects := newService(t)
	putObject(t, objects, "uploads/user-1/1_a.csv", strings.Join([]string{
		"exported 2026-08-01",
		"by the reporting tool",
		"Name,Email",
		"Ada,ada@x.io",
		"",
	}, "\n"))

	job, err := svc.Create(ctx, CreateParams{
		UserID:     "user-1",
		StorageKey: "uploads/user-1/1_a.csv",
		FileName:   "a.csv",
		Mapping:    map[string]string{"email": "Email"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.HeaderRowIndex != 2 {
		t.Errorf("HeaderRowIndex = %d, want 2", job.HeaderRowIndex)
	}
}

func TestCreateDetectsTabs(t *testing.T) {
	ctx := context.Background()
	svc, _, _, objects := newService(t)
	putObject(t, objects, "uploads/user-1/1_a.tsv", "Name\tEmail\nAda\tada@x.io\n")

	job, err := svc.Create(ctx, CreateParams{
		UserID:     "user-1",
		StorageKey: "uploads/user-1/1_a.tsv",
		FileName:   "a.tsv",
		Mapping:    map[string]string{"email": "Email"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Delimiter != "\t" {
		t.Errorf("Delimiter = %q, want tab", job.Delimiter)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, objects := newService(t)
	putObject(t, objects, "uploads/user-1/1_a.csv", "Name,Email\nAda,ada@x.io\n")

	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{
			name: "missing storage key",
			params: CreateParams{
				UserID:  "user-1",
				Mapping: map[string]string{"email": "Email"},
			},
			wantErr: ErrMissingStorageKey,
		},
		{
			name: "empty mapping",
			params: CreateParams{
				UserID:     "user-1",
				StorageKey: "uploads/user-1/1_a.csv",
			},
			wantErr: ErrEmptyMapping,
		},
		{
			name: "unknown destination field",
			params: CreateParams{
				UserID:     "user-1",
				StorageKey: "uploads/user-1/1_a.csv",
				Mapping:    map[string]string{"salary": "Salary"},
			},
			wantErr: ErrUnknownField,
		},
		{
			name: "source object missing",
			params: CreateParams{
				UserID:     "user-1",
				StorageKey: "uploads/user-1/does-not-exist.csv",
				Mapping:    map[string]string{"email": "Email"},
			},
			wantErr: ErrSourceNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSurfacesEnqueueFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, q, objects := newService(t)
	putObject(t, objects, "uploads/user-1/1_a.csv", "Name,Email\nAda,ada@x.io\n")
	q.fail = true

	job, err := svc.Create(ctx, CreateParams{
		UserID:     "user-1",
		StorageKey: "uploads/user-1/1_a.csv",
		FileName:   "a.csv",
		Mapping:    map[string]string{"email": "Email"},
	})
	if err == nil {
		t.Fatal("expected an enqueue error")
	}
	if job == nil || job.ID == "" {
		t.Fatal("expected the persisted job to be returned alongside the error")
	}
	if _, getErr := store.GetJob(ctx, job.ID); getErr != nil {
		t.Errorf("job not persisted: %v", getErr)
	}
}

func TestStatusScopedToUser(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newService(t)
	job := &models.UploadJob{UserID: "user-1", State: models.JobStateProcessing}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if _, err := svc.Status(ctx, "user-1", job.ID); err != nil {
		t.Errorf("owner Status: %v", err)
	}
	if _, err := svc.Status(ctx, "user-2", job.ID); !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("foreign Status err = %v, want ErrJobNotFound", err)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newService(t)
	job := &models.UploadJob{UserID: "user-1", State: models.JobStateProcessing}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := svc.Pause(ctx, "user-1", job.ID)
		if err != nil {
			t.Fatalf("Pause #%d: %v", i+1, err)
		}
		if !got.PauseRequested {
			t.Errorf("Pause #%d: flag not set", i+1)
		}
	}
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	svc, store, q, _ := newService(t)
	job := &models.UploadJob{
		UserID:       "user-1",
		State:        models.JobStatePaused,
		RowsSeen:     100,
		RowsInserted: 80,
		RowsRejected: 20,
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := svc.Resume(ctx, "user-1", job.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got.ResumeFrom != 100 {
		t.Errorf("ResumeFrom = %d, want 100", got.ResumeFrom)
	}

	p := q.lastPayload(t)
	if p.JobID != job.ID || p.ResumeFrom != 100 || p.InitialInserted != 80 || p.InitialRejected != 20 {
		t.Errorf("payload = %+v, want offsets 100/80/20", p)
	}
}

func TestResumeRefusesActiveJob(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newService(t)
	job := &models.UploadJob{UserID: "user-1", State: models.JobStateProcessing}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if _, err := svc.Resume(ctx, "user-1", job.ID); !errors.Is(err, models.ErrJobNotResumable) {
		t.Errorf("Resume err = %v, want ErrJobNotResumable", err)
	}
}
