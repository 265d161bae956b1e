package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/userhub-io/userhub/internal/config"
	"github.com/userhub-io/userhub/internal/storage"
)

const (
	defaultMigrationsPath = "./migrations"
	defaultMigrationTable = "schema_migrations"
)

var (
	errEmptyMigrationTable = errors.New("USERHUB_MIGRATION_TABLE cannot be empty")
	errEmptyMigrationsPath = errors.New("USERHUB_MIGRATIONS_PATH cannot be empty")
)

// Config holds the migrator settings. The database itself is described by the
// same DATABASE_URL / DB_* variables the service reads.
type Config struct {
	Storage        *storage.Config
	MigrationsPath string
	MigrationTable string
}

// LoadConfig reads the migrator configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Storage:        storage.LoadConfig(),
		MigrationsPath: config.GetEnvStr(defaultMigrationsPath, "USERHUB_MIGRATIONS_PATH", "MIGRATIONS_PATH"),
		MigrationTable: config.GetEnvStr(defaultMigrationTable, "USERHUB_MIGRATION_TABLE", "MIGRATION_TABLE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the database settings and resolves MigrationsPath to an existing directory.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if c.MigrationTable == "" {
		return errEmptyMigrationTable
	}

	if c.MigrationsPath == "" {
		return errEmptyMigrationsPath
	}

	absPath, err := filepath.Abs(c.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory does not exist: %s", absPath)
	}

	c.MigrationsPath = absPath

	return nil
}

// String is safe for logging: the database password is masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationsPath: %s, MigrationTable: %s}",
		c.Storage.MaskDatabaseURL(), c.MigrationsPath, c.MigrationTable)
}
