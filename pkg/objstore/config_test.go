package objstore

import (
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults_Backend(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Backend != BackendFS {
		t.Errorf("default backend = %q, want %q", cfg.Backend, BackendFS)
	}
	if cfg.FS.Path == "" {
		t.Error("fs path default not applied")
	}
}

func TestApplyDefaults_FSPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	cfg := &Config{Backend: BackendFS}
	cfg.ApplyDefaults()

	want := filepath.Join("/custom/data", "roster", "objects")
	if cfg.FS.Path != want {
		t.Errorf("fs path = %q, want %q", cfg.FS.Path, want)
	}

	// Explicit path is preserved
	cfg = &Config{Backend: BackendFS, FS: FSConfig{Path: "/var/lib/roster"}}
	cfg.ApplyDefaults()
	if cfg.FS.Path != "/var/lib/roster" {
		t.Errorf("explicit fs path overwritten: %q", cfg.FS.Path)
	}
}

func TestApplyDefaults_S3(t *testing.T) {
	cfg := &Config{Backend: BackendS3, S3: S3Config{Bucket: "b"}}
	cfg.ApplyDefaults()

	if cfg.S3.Region != "us-east-1" {
		t.Errorf("region = %q, want us-east-1", cfg.S3.Region)
	}
	if cfg.S3.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cfg.S3.MaxRetries)
	}
	if cfg.S3.InitialBackoff != 100*time.Millisecond {
		t.Errorf("initial backoff = %v, want 100ms", cfg.S3.InitialBackoff)
	}
	if cfg.S3.MaxBackoff != 2*time.Second {
		t.Errorf("max backoff = %v, want 2s", cfg.S3.MaxBackoff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"fs with path", Config{Backend: BackendFS, FS: FSConfig{Path: "/tmp/x"}}, false},
		{"fs without path", Config{Backend: BackendFS}, true},
		{"s3 with bucket", Config{Backend: BackendS3, S3: S3Config{Bucket: "b"}}, false},
		{"s3 without bucket", Config{Backend: BackendS3}, true},
		{"memory", Config{Backend: BackendMemory}, false},
		{"unknown backend", Config{Backend: "gcs"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
