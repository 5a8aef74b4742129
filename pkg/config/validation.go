package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Validation happens in two passes: struct tags (via go-playground/validator)
// cover field-level constraints like ranges and enums, and explicit checks
// cover cross-field rules the tags cannot express (e.g. the storage backend
// deciding which of its sub-sections is required).
//
// Validation does not mutate the configuration; call ApplyDefaults first.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Cross-field and section-owned rules
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := cfg.API.Validate(); err != nil {
		return err
	}

	// Storage validation enforces backend-specific requirements: an s3
	// backend without a bucket is a startup failure, not a runtime one.
	if err := cfg.Storage.Validate(); err != nil {
		return err
	}

	if err := cfg.Queue.Validate(); err != nil {
		return err
	}

	if err := validateIngest(&cfg.Ingest); err != nil {
		return err
	}

	return validateUpload(&cfg.Upload)
}

// validateIngest checks the row processing settings.
func validateIngest(cfg *IngestConfig) error {
	if cfg.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.ProgressInterval <= 0 {
		return fmt.Errorf("ingest.progress_interval must be positive")
	}
	if cfg.InsertTimeout <= 0 {
		return fmt.Errorf("ingest.insert_timeout must be positive")
	}
	return nil
}

// validateUpload checks the chunked upload settings.
func validateUpload(cfg *UploadConfig) error {
	if cfg.ManifestPath == "" {
		return fmt.Errorf("upload.manifest_path is required")
	}
	if cfg.ManifestTTL <= 0 {
		return fmt.Errorf("upload.manifest_ttl must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("upload.sweep_interval must be positive")
	}
	if cfg.MaxChunkSize == 0 {
		return fmt.Errorf("upload.max_chunk_size must be positive")
	}
	return nil
}
