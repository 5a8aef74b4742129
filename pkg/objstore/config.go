package objstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backend identifies an object storage implementation.
type Backend string

const (
	// BackendS3 stores objects in Amazon S3 or an S3-compatible endpoint.
	BackendS3 Backend = "s3"

	// BackendFS stores objects on the local filesystem (single-node, default).
	BackendFS Backend = "fs"

	// BackendMemory keeps objects in process memory. Test use only.
	BackendMemory Backend = "memory"
)

// S3Config configures the S3 backend.
type S3Config struct {
	// Bucket is the S3 bucket name. Required; the bucket must already exist.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Prefix is an optional prefix applied to all object keys.
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`

	// Region is the AWS region. Default: us-east-1.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint for S3-compatible services
	// (MinIO, Localstack). Empty uses AWS.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey are static credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// ForcePathStyle uses path-style addressing (required by most
	// S3-compatible services).
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`

	// MaxRetries is the retry budget for transient errors. Default: 3.
	MaxRetries uint `mapstructure:"max_retries" yaml:"max_retries,omitempty"`

	// InitialBackoff is the delay before the first retry. Default: 100ms.
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff,omitempty"`

	// MaxBackoff caps the exponential backoff. Default: 2s.
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff,omitempty"`
}

// FSConfig configures the filesystem backend.
type FSConfig struct {
	// Path is the root directory for object storage.
	// Default: $XDG_DATA_HOME/roster/objects
	Path string `mapstructure:"path" yaml:"path"`
}

// Config selects and configures the object storage backend.
type Config struct {
	// Backend selects the implementation: s3, fs or memory. Default: fs.
	Backend Backend `mapstructure:"backend" yaml:"backend"`

	S3 S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
	FS FSConfig `mapstructure:"fs" yaml:"fs,omitempty"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFS
	}

	if c.Backend == BackendFS && c.FS.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.FS.Path = filepath.Join(dataDir, "roster", "objects")
	}

	if c.Backend == BackendS3 {
		if c.S3.Region == "" {
			c.S3.Region = "us-east-1"
		}
		if c.S3.MaxRetries == 0 {
			c.S3.MaxRetries = 3
		}
		if c.S3.InitialBackoff == 0 {
			c.S3.InitialBackoff = 100 * time.Millisecond
		}
		if c.S3.MaxBackoff == 0 {
			c.S3.MaxBackoff = 2 * time.Second
		}
	}
}

// Validate checks if the configuration is valid.
// The s3 backend refuses to start without a bucket.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("storage bucket is required when backend is s3")
		}
	case BackendFS:
		if c.FS.Path == "" {
			return fmt.Errorf("storage path is required when backend is fs")
		}
	case BackendMemory:
		// Nothing to validate.
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Backend)
	}
	return nil
}
