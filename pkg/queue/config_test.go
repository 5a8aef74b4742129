package queue

import (
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	var cfg Config
	cfg.ApplyDefaults()

	if want := filepath.Join("/tmp/xdg-data", "roster", "queue"); cfg.Path != want {
		t.Errorf("expected default path %q, got %q", want, cfg.Path)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 max attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("expected 2s retry delay, got %v", cfg.RetryDelay)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms poll interval, got %v", cfg.PollInterval)
	}
}

func TestConfig_ApplyDefaultsKeepsExplicit(t *testing.T) {
	cfg := Config{
		Path:        "/var/lib/roster/queue",
		Workers:     8,
		MaxAttempts: 5,
	}
	cfg.ApplyDefaults()

	if cfg.Path != "/var/lib/roster/queue" {
		t.Errorf("explicit path overwritten: %q", cfg.Path)
	}
	if cfg.Workers != 8 {
		t.Errorf("explicit workers overwritten: %d", cfg.Workers)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("explicit max attempts overwritten: %d", cfg.MaxAttempts)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Path:         "/tmp/queue",
		Workers:      4,
		MaxAttempts:  3,
		RetryDelay:   2 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing path", func(c *Config) { c.Path = "" }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"zero max attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, true},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
