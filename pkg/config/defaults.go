package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rosterhq/roster/internal/bytesize"
	"github.com/rosterhq/roster/pkg/controlplane/store"
)

// ApplyDefaults fills every unset field after file and environment
// loading. Zero values are replaced; anything explicitly configured is
// left alone.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	cfg.Database.ApplyDefaults()
	applyMetricsDefaults(&cfg.Metrics)
	cfg.API.ApplyDefaults()
	cfg.Storage.ApplyDefaults()
	cfg.Queue.ApplyDefaults()
	applyIngestDefaults(&cfg.Ingest)
	applyUploadDefaults(&cfg.Upload)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Accept lowercase in config files, store uppercase internally.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// Tracing stays opt-in; the endpoint and sample-rate defaults only
// matter once it is enabled.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyIngestDefaults(cfg *IngestConfig) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = 2 * time.Second
	}
	if cfg.InsertTimeout == 0 {
		cfg.InsertTimeout = 30 * time.Second
	}
	// Strict stays false: salvage mode is the default.
}

func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.ManifestPath == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, _ := os.UserHomeDir()
			dataDir = filepath.Join(home, ".local", "share")
		}
		cfg.ManifestPath = filepath.Join(dataDir, "roster", "uploads")
	}
	if cfg.ManifestTTL == 0 {
		cfg.ManifestTTL = 24 * time.Hour
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.MaxChunkSize == 0 {
		cfg.MaxChunkSize = 32 * bytesize.MiB
	}
}

// GetDefaultConfig builds a fully defaulted Config, used for generated
// sample files and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
