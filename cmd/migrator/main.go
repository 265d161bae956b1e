// Package main provides the schema migration tool for the userhub usuario table.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

const (
	version = "1.0.0-dev"
	name    = "migrator"
)

var errUnknownCommand = errors.New("unknown command")

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner, err := NewMigrationRunner(cfg, logger)
	if err != nil {
		logger.Error("Failed to create migration runner", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = executeCommand(flag.Arg(0), runner)

	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("Failed to close migration runner", slog.String("error", closeErr.Error()))
	}

	if err != nil {
		logger.Error("Migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func executeCommand(command string, runner MigrationRunner) error {
	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "version":
		return runner.Version()
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}

func printUsage() {
	fmt.Printf(`%s v%s - schema migrations for userhub

USAGE:
    %s [--version] COMMAND

COMMANDS:
    up       Apply all pending migrations
    down     Roll back the last migration
    version  Show the current schema version

ENVIRONMENT VARIABLES:
    DATABASE_URL             PostgreSQL connection string (or DB_HOST, DB_PORT,
                             DB_USER, DB_PASSWORD, DB_NAME)
    USERHUB_MIGRATIONS_PATH  Directory with *.up.sql / *.down.sql files
                             (default: ./migrations)
    USERHUB_MIGRATION_TABLE  Migration tracking table (default: schema_migrations)
`, name, version, name)
}
