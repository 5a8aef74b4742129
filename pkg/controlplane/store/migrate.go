package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver required by golang-migrate

	"github.com/rosterhq/roster/pkg/controlplane/store/migrations"
)

// newMigrator opens a migrate instance over the embedded migration files.
// The caller owns closing the returned *sql.DB.
func newMigrator(connString string) (*migrate.Migrate, *sql.DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, db, nil
}

// runMigrations applies pending migrations. golang-migrate takes a
// PostgreSQL advisory lock, so concurrent server instances serialize
// here instead of racing.
func runMigrations(ctx context.Context, connString string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	m, db, err := newMigrator(connString)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No migrations to apply (database is up to date)")
	case err != nil:
		return fmt.Errorf("migration failed: %w", err)
	default:
		logger.Info("Migrations completed successfully")
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("No migrations applied yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	logger.Info("Current schema version", "version", version, "dirty", dirty)
	if dirty {
		logger.Warn("Database schema is in dirty state - manual intervention may be required")
	}
	return nil
}

// RunMigrations applies versioned migrations from the CLI. Only the
// PostgreSQL backend uses them; SQLite deployments rely on GORM
// auto-migration at startup.
func RunMigrations(ctx context.Context, cfg *Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Type != DatabaseTypePostgres {
		return fmt.Errorf("versioned migrations require the postgres backend (got %s)", cfg.Type)
	}
	return runMigrations(ctx, cfg.Postgres.DSN(), slog.Default())
}

// MigrationVersion reports the current schema version and whether the
// schema is dirty.
func MigrationVersion(cfg *Config) (uint, bool, error) {
	if cfg.Type != DatabaseTypePostgres {
		return 0, false, fmt.Errorf("versioned migrations require the postgres backend (got %s)", cfg.Type)
	}

	m, db, err := newMigrator(cfg.Postgres.DSN())
	if err != nil {
		return 0, false, err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty, nil
}
