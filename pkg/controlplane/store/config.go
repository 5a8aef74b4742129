package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DatabaseType selects a persistence backend.
type DatabaseType string

const (
	// DatabaseTypeSQLite is the single-node default.
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres supports multi-node deployments.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// Config selects and configures the database backend.
type Config struct {
	Type     DatabaseType
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// SQLiteConfig configures the embedded SQLite backend.
type SQLiteConfig struct {
	// Path to the database file. Defaults to
	// $XDG_CONFIG_HOME/roster/roster.db when empty.
	Path string
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string // disable, require, verify-ca, verify-full
	SSLRootCert  string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN builds the keyword/value connection string for the postgres driver.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	if c.SSLRootCert != "" {
		dsn += " sslrootcert=" + c.SSLRootCert
	}
	return dsn
}

// ApplyDefaults fills unset fields. Explicitly configured values are
// never overwritten.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}

	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = filepath.Join(defaultConfigDir(), "roster", "roster.db")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate reports configuration that New would fail on.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
