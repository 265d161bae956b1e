// Package main provides the userhub bulk loader. It reads a JSON array of users,
// applies the same normalization and adult-age rule as the API and writes the valid
// records to the usuario table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/userhub-io/userhub/internal/config"
	"github.com/userhub-io/userhub/internal/storage"
	"github.com/userhub-io/userhub/internal/users"
)

const (
	version = "1.0.0-dev"
	name    = "seed"
)

func main() {
	var (
		file        = flag.String("file", "", "path of the JSON file with the users to load (required)")
		strict      = flag.Bool("strict", false, "insert one by one and report existing emails instead of skipping them")
		showVersion = flag.Bool("version", false, "show version information")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel(slog.LevelInfo, "USERHUB_LOG_LEVEL"),
	}))

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*file, *strict, logger); err != nil {
		logger.Error("Seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(path string, strict bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}

	inputs, err := decodeInputs(f)
	_ = f.Close()

	if err != nil {
		return err
	}

	storageConfig := storage.LoadConfig()

	conn, err := storage.NewConnection(storageConfig)
	if err != nil {
		return err
	}

	defer func() {
		_ = conn.Close()
	}()

	store, err := storage.NewUserStore(conn, storage.WithStoreLogger(logger))
	if err != nil {
		return err
	}

	svc, err := users.NewService(store, users.WithLogger(logger))
	if err != nil {
		return err
	}

	l := &loader{users: svc, store: store, strict: strict, logger: logger}

	rep, err := l.load(ctx, inputs)
	if err != nil {
		return err
	}

	for _, rej := range rep.Rejected {
		logger.Warn("Seed record rejected",
			slog.Int("index", rej.Index),
			slog.String("email", rej.Email),
			slog.String("reason", rej.Reason))
	}

	logger.Info("Seed completed",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Bool("strict", strict),
		slog.Int("read", rep.Read),
		slog.Int64("inserted", rep.Inserted),
		slog.Int64("skipped", rep.Skipped),
		slog.Int("rejected", len(rep.Rejected)))

	return nil
}
