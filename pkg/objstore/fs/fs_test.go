package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rosterhq/roster/pkg/objstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewWithPath(t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New with empty base path should fail")
	}

	// Base path pointing at a file is rejected
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := New(Config{BasePath: file, CreateDir: false}); err == nil {
		t.Error("New with file base path should fail")
	}

	// CreateDir makes the directory
	nested := filepath.Join(dir, "a", "b", "objects")
	s, err := New(Config{BasePath: nested, CreateDir: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if info, err := os.Stat(nested); err != nil || !info.IsDir() {
		t.Errorf("base directory was not created: %v", err)
	}
}

func TestStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "uploads/user-1/1724572800000_contacts.csv"
	data := "name,email\nAda,ada@example.com\n"

	if err := s.Put(ctx, key, strings.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got := readAll(t, s, key, 0, -1)
	if got != data {
		t.Errorf("GetRange returned %q, want %q", got, data)
	}

	// The key maps onto a nested path under the base directory
	if _, err := os.Stat(filepath.Join(s.BasePath(), "uploads", "user-1", "1724572800000_contacts.csv")); err != nil {
		t.Errorf("object file not found on disk: %v", err)
	}
}

func TestStore_PutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, "a/b.csv", strings.NewReader("data"), -1, ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Size mismatch aborts the write and cleans up the temp file
	if err := s.Put(ctx, "a/c.csv", strings.NewReader("data"), 99, ""); err == nil {
		t.Fatal("Put with wrong size should fail")
	}

	err := filepath.Walk(s.BasePath(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".tmp") {
			t.Errorf("temp file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if ok, _ := s.Exists(ctx, "a/c.csv"); ok {
		t.Error("failed Put should not leave a visible object")
	}
}

func TestStore_GetRangeNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetRange(ctx, "nonexistent", 0, -1)
	if !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("GetRange returned error %v, want %v", err, objstore.ErrNotFound)
	}
}

func TestStore_GetRangeBounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "uploads/user-1/data.csv"
	if err := s.Put(ctx, key, strings.NewReader("0123456789"), -1, ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	tests := []struct {
		name       string
		start, end int64
		want       string
	}{
		{"full via negative end", 0, -1, "0123456789"},
		{"inclusive range", 2, 5, "2345"},
		{"single byte", 4, 4, "4"},
		{"to end from middle", 5, -1, "56789"},
		{"end clamped to size", 5, 100, "56789"},
		{"start at size", 10, -1, ""},
		{"start beyond size", 50, -1, ""},
		{"end before start", 5, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, s, key, tt.start, tt.end)
			if got != tt.want {
				t.Errorf("GetRange(%d, %d) = %q, want %q", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.Exists(ctx, "missing")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("Exists returned true for missing key")
	}

	if err := s.Put(ctx, "present.csv", strings.NewReader("x"), -1, ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	ok, err = s.Exists(ctx, "present.csv")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("Exists returned false for present key")
	}
}

func TestStore_Append(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "uploads/user-1/assembling.csv"

	// Append creates the object when missing
	size, err := s.Append(ctx, key, []byte("chunk-0;"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if size != 8 {
		t.Errorf("Append returned size %d, want 8", size)
	}

	size, err = s.Append(ctx, key, []byte("chunk-1;"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if size != 16 {
		t.Errorf("Append returned size %d, want 16", size)
	}

	got := readAll(t, s, key, 0, -1)
	if got != "chunk-0;chunk-1;" {
		t.Errorf("got %q after appends", got)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "uploads/user-1/gone.csv"
	if err := s.Put(ctx, key, strings.NewReader("x"), -1, ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	ok, err := s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("key still exists after Delete")
	}

	// Empty parent directories are pruned back to the base path
	if _, err := os.Stat(filepath.Join(s.BasePath(), "uploads")); !os.IsNotExist(err) {
		t.Errorf("empty parent directory not cleaned up: %v", err)
	}
	if _, err := os.Stat(s.BasePath()); err != nil {
		t.Errorf("base path must survive cleanup: %v", err)
	}

	// Deleting again is not an error
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := s.Put(ctx, "k", strings.NewReader("x"), -1, ""); !errors.Is(err, objstore.ErrClosed) {
		t.Errorf("Put after Close returned %v, want %v", err, objstore.ErrClosed)
	}
	if _, err := s.GetRange(ctx, "k", 0, -1); !errors.Is(err, objstore.ErrClosed) {
		t.Errorf("GetRange after Close returned %v, want %v", err, objstore.ErrClosed)
	}
}

func readAll(t *testing.T, s *Store, key string, start, end int64) string {
	t.Helper()

	rc, err := s.GetRange(context.Background(), key, start, end)
	if err != nil {
		t.Fatalf("GetRange(%d, %d) failed: %v", start, end, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return string(data)
}
