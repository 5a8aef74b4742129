package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rosterhq/roster/pkg/objstore"
	objmemory "github.com/rosterhq/roster/pkg/objstore/memory"
	"github.com/rosterhq/roster/pkg/upload"
	manmemory "github.com/rosterhq/roster/pkg/upload/memory"
)

func newAssembler(t *testing.T, cfg upload.Config) (*upload.Assembler, *objmemory.Store, *manmemory.Store) {
	t.Helper()
	objects := objmemory.New()
	t.Cleanup(func() { _ = objects.Close() })
	manifests := manmemory.New()
	return upload.NewAssembler(objects, manifests, cfg, nil), objects, manifests
}

func readObject(t *testing.T, s *objmemory.Store, key string) string {
	t.Helper()
	rc, err := s.GetRange(context.Background(), key, 0, -1)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return string(data)
}

func TestAssembler_SingleChunk(t *testing.T) {
	a, objects, manifests := newAssembler(t, upload.Config{})
	ctx := context.Background()

	res, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName:    "contacts.csv",
		ChunkIndex:  0,
		TotalChunks: 1,
		Data:        []byte("name,email\nAda,ada@x.io\n"),
	})
	if err != nil {
		t.Fatalf("ReceiveChunk failed: %v", err)
	}

	if res.Status != upload.StatusComplete {
		t.Errorf("Status = %q, want %q", res.Status, upload.StatusComplete)
	}
	if res.ProgressPct != 100 {
		t.Errorf("ProgressPct = %d, want 100", res.ProgressPct)
	}
	if len(res.Headers) != 2 || res.Headers[0] != "name" || res.Headers[1] != "email" {
		t.Errorf("Headers = %v", res.Headers)
	}
	if !strings.HasPrefix(res.StorageKey, "uploads/user-1/") {
		t.Errorf("StorageKey = %q, want uploads/user-1/ prefix", res.StorageKey)
	}
	if !strings.HasSuffix(res.StorageKey, "_contacts.csv") {
		t.Errorf("StorageKey = %q, want _contacts.csv suffix", res.StorageKey)
	}

	if got := readObject(t, objects, res.StorageKey); got != "name,email\nAda,ada@x.io\n" {
		t.Errorf("assembled object = %q", got)
	}

	// The manifest must be gone after completion.
	if _, err := manifests.Get(ctx, "user-1", "contacts.csv"); !errors.Is(err, upload.ErrManifestNotFound) {
		t.Errorf("manifest still present after completion: %v", err)
	}
}

func TestAssembler_MultiChunkProgress(t *testing.T) {
	a, objects, _ := newAssembler(t, upload.Config{})
	ctx := context.Background()

	chunks := []string{"name,em", "ail\nAda,", "ada@x.io\n"}
	wantProgress := []int{33, 67, 100}

	var key string
	for i, data := range chunks {
		res, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
			FileName:    "contacts.csv",
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Data:        []byte(data),
		})
		if err != nil {
			t.Fatalf("chunk %d failed: %v", i, err)
		}
		if res.ProgressPct != wantProgress[i] {
			t.Errorf("chunk %d progress = %d, want %d", i, res.ProgressPct, wantProgress[i])
		}
		if i < len(chunks)-1 && res.Status != upload.StatusInProgress {
			t.Errorf("chunk %d status = %q, want %q", i, res.Status, upload.StatusInProgress)
		}
		if i == len(chunks)-1 {
			if res.Status != upload.StatusComplete {
				t.Errorf("final status = %q, want %q", res.Status, upload.StatusComplete)
			}
			key = res.StorageKey
		}
	}

	if got := readObject(t, objects, key); got != strings.Join(chunks, "") {
		t.Errorf("assembled object = %q", got)
	}
}

func TestAssembler_OutOfOrderRejected(t *testing.T) {
	a, _, _ := newAssembler(t, upload.Config{})
	ctx := context.Background()

	// First chunk of a new upload must be index 0.
	_, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 1, TotalChunks: 3, Data: []byte("x"),
	})
	if !errors.Is(err, upload.ErrChunkOutOfOrder) {
		t.Fatalf("err = %v, want ErrChunkOutOfOrder", err)
	}

	if _, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 3, Data: []byte("a,b\n"),
	}); err != nil {
		t.Fatalf("chunk 0 failed: %v", err)
	}

	// Skipping ahead is rejected.
	_, err = a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 2, TotalChunks: 3, Data: []byte("x"),
	})
	if !errors.Is(err, upload.ErrChunkOutOfOrder) {
		t.Fatalf("skip err = %v, want ErrChunkOutOfOrder", err)
	}

	// Re-sending an already appended chunk is rejected, not double-appended.
	_, err = a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 3, Data: []byte("a,b\n"),
	})
	if err != nil {
		// Chunk 0 restarts the upload rather than corrupting it.
		t.Fatalf("chunk 0 resend failed: %v", err)
	}
}

func TestAssembler_TotalChunksMismatch(t *testing.T) {
	a, _, _ := newAssembler(t, upload.Config{})
	ctx := context.Background()

	if _, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 3, Data: []byte("a,b\n"),
	}); err != nil {
		t.Fatalf("chunk 0 failed: %v", err)
	}

	_, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 1, TotalChunks: 4, Data: []byte("x"),
	})
	if !errors.Is(err, upload.ErrChunkMismatch) {
		t.Fatalf("err = %v, want ErrChunkMismatch", err)
	}
}

func TestAssembler_RestartOnChunkZero(t *testing.T) {
	a, objects, _ := newAssembler(t, upload.Config{})
	ctx := context.Background()

	if _, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 3, Data: []byte("old"),
	}); err != nil {
		t.Fatalf("chunk 0 failed: %v", err)
	}

	// A fresh chunk 0 for the same name starts over with a new key.
	res, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 1, Data: []byte("name,email\nAda,ada@x.io\n"),
	})
	if err != nil {
		t.Fatalf("restart chunk 0 failed: %v", err)
	}
	if res.Status != upload.StatusComplete {
		t.Fatalf("Status = %q, want complete", res.Status)
	}
	if got := readObject(t, objects, res.StorageKey); strings.Contains(got, "old") {
		t.Errorf("restarted object still contains stale bytes: %q", got)
	}
}

// flakyStore fails the next Append once, then delegates.
type flakyStore struct {
	objstore.Store
	failNext bool
}

func (f *flakyStore) Append(ctx context.Context, key string, chunk []byte) (int64, error) {
	if f.failNext {
		f.failNext = false
		return 0, errors.New("injected append failure")
	}
	return f.Store.Append(ctx, key, chunk)
}

func TestAssembler_RetryAfterFailedAppendLandsOnce(t *testing.T) {
	objects := objmemory.New()
	t.Cleanup(func() { _ = objects.Close() })
	flaky := &flakyStore{Store: objects}
	a := upload.NewAssembler(flaky, manmemory.New(), upload.Config{}, nil)
	ctx := context.Background()

	if _, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 2, Data: []byte("name,email\n"),
	}); err != nil {
		t.Fatalf("chunk 0 failed: %v", err)
	}

	flaky.failNext = true
	_, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 1, TotalChunks: 2, Data: []byte("Ada,ada@x.io\n"),
	})
	if err == nil {
		t.Fatal("append should have failed")
	}

	// The retry of the failed chunk appends it exactly once.
	res, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 1, TotalChunks: 2, Data: []byte("Ada,ada@x.io\n"),
	})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if res.Status != upload.StatusComplete {
		t.Fatalf("Status = %q, want complete", res.Status)
	}

	if got := readObject(t, objects, res.StorageKey); got != "name,email\nAda,ada@x.io\n" {
		t.Errorf("assembled object = %q", got)
	}
}

func TestAssembler_ChunkTooLarge(t *testing.T) {
	a, _, _ := newAssembler(t, upload.Config{MaxChunkSize: 8})
	ctx := context.Background()

	_, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "f.csv", ChunkIndex: 0, TotalChunks: 1, Data: bytes.Repeat([]byte("x"), 9),
	})
	if !errors.Is(err, upload.ErrChunkTooLarge) {
		t.Fatalf("err = %v, want ErrChunkTooLarge", err)
	}
}

func TestAssembler_ValidatesRequest(t *testing.T) {
	a, _, _ := newAssembler(t, upload.Config{})
	ctx := context.Background()

	cases := []upload.ChunkRequest{
		{FileName: "", ChunkIndex: 0, TotalChunks: 1, Data: []byte("x")},
		{FileName: "f", ChunkIndex: -1, TotalChunks: 1, Data: []byte("x")},
		{FileName: "f", ChunkIndex: 1, TotalChunks: 1, Data: []byte("x")},
		{FileName: "f", ChunkIndex: 0, TotalChunks: 0, Data: []byte("x")},
		{FileName: "f", ChunkIndex: 0, TotalChunks: 1, Data: nil},
	}
	for i, req := range cases {
		if _, err := a.ReceiveChunk(ctx, "user-1", req); !errors.Is(err, upload.ErrInvalidChunk) {
			t.Errorf("case %d: err = %v, want ErrInvalidChunk", i, err)
		}
	}

	if _, err := a.ReceiveChunk(ctx, "", upload.ChunkRequest{
		FileName: "f", ChunkIndex: 0, TotalChunks: 1, Data: []byte("x"),
	}); !errors.Is(err, upload.ErrInvalidChunk) {
		t.Errorf("empty user: err = %v, want ErrInvalidChunk", err)
	}
}

func TestAssembler_SweepStale(t *testing.T) {
	a, objects, manifests := newAssembler(t, upload.Config{ManifestTTL: time.Hour})
	ctx := context.Background()

	if _, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "stale.csv", ChunkIndex: 0, TotalChunks: 2, Data: []byte("a,b\n"),
	}); err != nil {
		t.Fatalf("chunk 0 failed: %v", err)
	}
	if _, err := a.ReceiveChunk(ctx, "user-1", upload.ChunkRequest{
		FileName: "fresh.csv", ChunkIndex: 0, TotalChunks: 2, Data: []byte("a,b\n"),
	}); err != nil {
		t.Fatalf("chunk 0 failed: %v", err)
	}

	// Age the stale upload past the TTL.
	stale, err := manifests.Get(ctx, "user-1", "stale.csv")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	staleKey := stale.StorageKey
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	if err := manifests.Put(ctx, stale); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	swept, err := a.SweepStale(ctx)
	if err != nil {
		t.Fatalf("SweepStale failed: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	if _, err := manifests.Get(ctx, "user-1", "stale.csv"); !errors.Is(err, upload.ErrManifestNotFound) {
		t.Error("stale manifest should be gone")
	}
	if ok, _ := objects.Exists(ctx, staleKey); ok {
		t.Error("stale partial object should be gone")
	}
	if _, err := manifests.Get(ctx, "user-1", "fresh.csv"); err != nil {
		t.Errorf("fresh manifest should remain: %v", err)
	}
}

func TestAssembler_Headers(t *testing.T) {
	a, objects, _ := newAssembler(t, upload.Config{})
	ctx := context.Background()

	body := "Full Name,Email\nAda,ada@x.io\n"
	if err := objects.Put(ctx, "uploads/u/1_f.csv", strings.NewReader(body), int64(len(body)), "text/csv"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	headers, err := a.Headers(ctx, "uploads/u/1_f.csv")
	if err != nil {
		t.Fatalf("Headers failed: %v", err)
	}
	if len(headers) != 2 || headers[0] != "Full Name" {
		t.Errorf("headers = %v", headers)
	}

	if _, err := a.Headers(ctx, "uploads/u/does-not-exist"); !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"contacts.csv", "contacts.csv"},
		{"my file (1).csv", "my_file__1_.csv"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"résumé.csv", "r__sum__.csv"},
		{"UPPER-lower.123", "UPPER-lower.123"},
	}
	for _, tt := range tests {
		if got := upload.SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
