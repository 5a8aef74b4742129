package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/roster/pkg/objstore"
)

func TestValidateDefaults(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
}

// Each case mutates a default config into an invalid one and names the
// substring the validation error should mention.
func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ""},
		{"port too high", func(c *Config) { c.API.Port = 70000 }, "max"},
		{"negative port", func(c *Config) { c.API.Port = -1 }, ""},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "gcs" }, ""},
		{"sample rate out of range", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "localhost:4317"
			c.Telemetry.SampleRate = 1.5
		}, ""},
		{"negative batch size", func(c *Config) { c.Ingest.BatchSize = -1 }, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidateS3RequiresBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Backend = objstore.BackendS3
	cfg.Storage.S3.Bucket = ""
	// Re-apply defaults so the s3 section gets its retry defaults; bucket
	// stays empty because defaults never invent one.
	ApplyDefaults(cfg)

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestValidateAuthSecret(t *testing.T) {
	t.Setenv("ROSTER_API_SECRET", "")

	t.Run("enabled needs a secret", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.API.Auth.Enabled = true
		cfg.API.Auth.Secret = ""
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})

	t.Run("secret too short", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.API.Auth.Enabled = true
		cfg.API.Auth.Secret = "short"
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32")
	})
}

func TestValidateTelemetryNeedsEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	require.Error(t, Validate(cfg))
}

func TestLogLevelCaseHandling(t *testing.T) {
	// Validation accepts both cases and does not rewrite the value.
	for _, level := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		assert.NoError(t, Validate(cfg), "level %q", level)
		assert.Equal(t, level, cfg.Logging.Level)
	}

	// Normalization to uppercase is ApplyDefaults' job.
	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}
