package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver

	"github.com/userhub-io/userhub/internal/storage"
)

type (
	// MigrationRunner applies the usuario schema migrations.
	MigrationRunner interface {
		Up() error
		Down() error
		Version() error
		Close() error
	}

	migrationRunner struct {
		migrate *migrate.Migrate
		conn    *storage.Connection
		logger  *slog.Logger
	}

	migrateLogger struct {
		logger *slog.Logger
	}
)

var _ migrate.Logger = (*migrateLogger)(nil)

// NewMigrationRunner opens the database and prepares golang-migrate against cfg.MigrationsPath.
func NewMigrationRunner(cfg *Config, logger *slog.Logger) (MigrationRunner, error) {
	logger.Info("Initializing migration runner", slog.String("config", cfg.String()))

	conn, err := storage.NewConnection(cfg.Storage)
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{
		MigrationsTable: cfg.MigrationTable,
	})
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{logger: logger}

	return &migrationRunner{migrate: m, conn: conn, logger: logger}, nil
}

// Up applies all pending migrations.
func (r *migrationRunner) Up() error {
	err := r.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No new migrations to apply")

		return nil
	}

	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}

	r.logger.Info("All migrations applied successfully")

	return nil
}

// Down rolls back the last applied migration.
func (r *migrationRunner) Down() error {
	err := r.migrate.Steps(-1)
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No migrations to rollback")

		return nil
	}

	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}

	r.logger.Info("Last migration rolled back successfully")

	return nil
}

// Version logs the current schema version.
func (r *migrationRunner) Version() error {
	ver, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		r.logger.Info("No migrations applied")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	r.logger.Info("Current migration version",
		slog.Uint64("version", uint64(ver)),
		slog.Bool("dirty", dirty))

	return nil
}

// Close releases the migrate source and the database connection.
func (r *migrationRunner) Close() error {
	var errs []error

	// The postgres driver was built WithInstance, so closing it does not close conn.DB.
	sourceErr, dbErr := r.migrate.Close()
	if sourceErr != nil {
		errs = append(errs, fmt.Errorf("source close error: %w", sourceErr))
	}

	if dbErr != nil {
		errs = append(errs, fmt.Errorf("database driver close error: %w", dbErr))
	}

	if err := r.conn.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrate"))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
