// Package main provides the userhub service: the usuario REST API, the randomuser.me
// integration and the PDF reports.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/userhub-io/userhub/internal/api"
	"github.com/userhub-io/userhub/internal/api/middleware"
	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/metrics"
	"github.com/userhub-io/userhub/internal/randomuser"
	"github.com/userhub-io/userhub/internal/report"
	"github.com/userhub-io/userhub/internal/storage"
	"github.com/userhub-io/userhub/internal/users"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "userhub"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting userhub service",
		slog.String("service", name),
		slog.String("version", version),
	)

	if err := serverConfig.Validate(); err != nil {
		logger.Error("Invalid server configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	middlewareConfig := middleware.LoadConfig()

	// Closed by server.shutdown().
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("global_burst", middlewareConfig.GlobalBurst),
		slog.Int("client_rps", middlewareConfig.ClientRPS),
		slog.Int("client_burst", middlewareConfig.ClientBurst),
		slog.Int("max_clients", middlewareConfig.MaxClients),
	)

	upstreamConfig := randomuser.LoadConfig()

	fetcher, err := randomuser.NewClient(upstreamConfig, nil)
	if err != nil {
		logger.Error("Invalid randomuser configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close()
	}()

	logger.Info("Database connection established",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
		slog.Duration("database_conn_max_lifetime", storageConfig.ConnMaxLifetime),
		slog.Duration("database_conn_max_idle_time", storageConfig.ConnMaxIdleTime),
	)

	server, err := buildServer(serverConfig, dbConn, fetcher, rateLimiter, logger)
	if err != nil {
		logger.Error("Failed to build server", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	logger.Info("Integration source configured",
		slog.String("randomuser_url", upstreamConfig.BaseURL),
		slog.Duration("randomuser_timeout", upstreamConfig.Timeout),
	)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	logger.Info("userhub service stopped")
}

func buildServer(
	cfg *api.ServerConfig,
	conn *storage.Connection,
	fetcher integration.Fetcher,
	limiter middleware.RateLimiter,
	logger *slog.Logger,
) (*api.Server, error) {
	store, err := storage.NewUserStore(conn, storage.WithStoreLogger(logger))
	if err != nil {
		return nil, err
	}

	userService, err := users.NewService(store, users.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	integrationService, err := integration.NewService(fetcher, store,
		integration.WithLogger(logger),
		integration.WithRecorder(m),
	)
	if err != nil {
		return nil, err
	}

	return api.NewServer(cfg, api.Dependencies{
		Store:       store,
		Users:       userService,
		Integration: integrationService,
		Reports:     report.NewRenderer(report.LoadConfigFromEnv()),
		Metrics:     m,
		RateLimiter: limiter,
		Logger:      logger,
	})
}
