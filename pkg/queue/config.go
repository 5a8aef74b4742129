package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config configures the queue and its worker pool.
type Config struct {
	// Path is the directory for the badger-backed queue.
	// Default: $XDG_DATA_HOME/roster/queue
	Path string `mapstructure:"path" yaml:"path"`

	// Workers is the number of concurrent job workers.
	// Default: 4
	Workers int `mapstructure:"workers" validate:"omitempty,min=1" yaml:"workers"`

	// MaxAttempts is the delivery budget per message. A message whose final
	// attempt fails is dropped from the queue after the exhausted callback.
	// Default: 3
	MaxAttempts int `mapstructure:"max_attempts" validate:"omitempty,min=1" yaml:"max_attempts"`

	// RetryDelay is the backoff before the first redelivery; each further
	// redelivery doubles it.
	// Default: 2s
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// PollInterval is how often the dispatcher checks for deliverable
	// messages when the queue last reported empty.
	// Default: 500ms
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.Path = filepath.Join(dataDir, "roster", "queue")
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 500 * time.Millisecond
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("queue path is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("queue workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("queue max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("queue retry delay must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("queue poll interval must be positive")
	}
	return nil
}
