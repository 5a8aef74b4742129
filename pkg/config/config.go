package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rosterhq/roster/internal/bytesize"
	"github.com/rosterhq/roster/pkg/controlplane/api"
	"github.com/rosterhq/roster/pkg/controlplane/store"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/rosterhq/roster/pkg/queue"
)

// Config is the full static configuration of the ingestion server.
//
// Values are resolved in this order, strongest first: CLI flags,
// ROSTER_* environment variables, the config file (YAML or TOML), and
// finally the built-in defaults.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server holds process-level settings such as the shutdown budget
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Database configures the relational store for jobs and candidates
	// (SQLite or PostgreSQL).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains REST API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Storage configures the object store holding uploaded source files
	Storage objstore.Config `mapstructure:"storage" yaml:"storage"`

	// Queue configures the durable job queue and its worker pool
	Queue queue.Config `mapstructure:"queue" yaml:"queue"`

	// Ingest tunes the row processing pipeline
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`

	// Upload configures chunked upload handling
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`
}

// ServerConfig contains process-level server settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Workers get this long to finish the batch they are on; unfinished
	// jobs are redelivered from the queue on the next start.
	// Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level that gets logged: DEBUG, INFO, WARN or
	// ERROR. Either case is accepted; ApplyDefaults uppercases it.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format selects "text" or "json" output
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is "stdout", "stderr" or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls distributed tracing. Traces go to any
// OTLP-compatible collector (Jaeger, Tempo, an OTel collector).
type TelemetryConfig struct {
	// Enabled turns tracing on; it is off unless asked for
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the collector's host:port. Defaults to localhost:4317,
	// the standard OTLP gRPC port.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure skips TLS to the collector. Defaults to true, which suits
	// local development; production collectors should set it to false.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of traces kept, 0.0 through 1.0.
	// Defaults to sampling everything.
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling configures Pyroscope continuous profiling
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls continuous profiling. When on, CPU and memory
// profiles stream to a Pyroscope server.
type ProfilingConfig struct {
	// Enabled turns profiling on; off unless asked for
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL, http://localhost:4040 when
	// left empty
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes names the profiles to collect: cpu, alloc_objects,
	// alloc_space, inuse_objects, inuse_space, goroutines, mutex_count,
	// mutex_duration, block_count, block_duration. A sensible subset is
	// filled in when empty.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. With
// Enabled false nothing is collected at all.
type MetricsConfig struct {
	// Enabled turns on collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port serves the metrics endpoint, 9090 when unset
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// IngestConfig tunes the row processing pipeline.
type IngestConfig struct {
	// BatchSize is the number of accepted candidates buffered before a
	// database insert. Progress checkpoints happen on the same boundary.
	// Default: 2000
	BatchSize int `mapstructure:"batch_size" validate:"omitempty,min=1" yaml:"batch_size"`

	// ProgressInterval is the minimum time between progress writes to the
	// job row while a batch is accumulating.
	// Default: 2s
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`

	// InsertTimeout bounds each batch insert.
	// Default: 30s
	InsertTimeout time.Duration `mapstructure:"insert_timeout" yaml:"insert_timeout"`

	// Strict disables field salvaging: rows whose email/phone/URL fields
	// fail validation are counted as skipped instead of being cleaned
	// field-by-field.
	// Default: false (salvage on)
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

// UploadConfig configures chunked upload handling.
type UploadConfig struct {
	// ManifestPath is the directory for the upload manifest database,
	// which tracks per-upload chunk progress across restarts.
	// Default: $XDG_DATA_HOME/roster/uploads
	ManifestPath string `mapstructure:"manifest_path" yaml:"manifest_path"`

	// ManifestTTL is how long an incomplete upload may sit idle before the
	// sweeper deletes its manifest and partial object.
	// Default: 24h
	ManifestTTL time.Duration `mapstructure:"manifest_ttl" yaml:"manifest_ttl"`

	// SweepInterval is how often the manifest sweeper runs.
	// Default: 1h
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// MaxChunkSize caps the size of a single uploaded chunk.
	// Supports human-readable formats: "32MB", "10Mi".
	// Default: 32Mi
	MaxChunkSize bytesize.ByteSize `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
}

// Load reads configuration from file and environment, applies defaults,
// and validates the result.
//
// Precedence, highest first: environment variables (ROSTER_*), the
// configuration file, built-in defaults. A missing config file is not an
// error; the defaults simply stand alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// ROSTER_LOGGING_LEVEL=DEBUG overrides logging.level, and so on.
	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return GetDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load with friendlier errors for commands that cannot run
// without a config file: it tells the user how to create one.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf(
				"no configuration file at %s\n\n"+
					"Run \"rosterd init\" to create one, or pass\n"+
					"  rosterd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf(
			"configuration file not found: %s\n\n"+
				"Create it with \"rosterd init --config %s\"",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration as YAML. Mode 0600 because the
// file may hold the API signing secret.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook lets config files write sizes as "1Gi", "100MB",
// or a plain byte count.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML numbers often arrive as float64.
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook lets config files write durations as "30s" or "1h".
// Bare numbers are taken as nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir resolves $XDG_CONFIG_HOME/roster, falling back to
// ~/.config/roster, and to the working directory only when the home
// directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "roster")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "roster")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the config directory for the init command.
func GetConfigDir() string {
	return getConfigDir()
}
