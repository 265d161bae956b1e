package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/userhub-io/userhub/internal/api/middleware"
	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/metrics"
	"github.com/userhub-io/userhub/internal/report"
	"github.com/userhub-io/userhub/internal/users"
)

// ErrMissingDependency is returned by NewServer when a required dependency is nil.
var ErrMissingDependency = errors.New("missing server dependency")

type (
	// Dependencies are the runtime collaborators of the server. Store, Users,
	// Integration and Reports are required; Metrics and RateLimiter are optional.
	Dependencies struct {
		Store       users.Store
		Users       *users.Service
		Integration *integration.Service
		Reports     *report.Renderer
		Metrics     *metrics.Metrics
		RateLimiter middleware.RateLimiter
		Logger      *slog.Logger
	}

	// Server represents the HTTP API server.
	Server struct {
		httpServer  *http.Server
		handler     http.Handler
		logger      *slog.Logger
		config      *ServerConfig
		startTime   time.Time
		store       users.Store
		users       *users.Service
		integration *integration.Service
		reports     *report.Renderer
		metrics     *metrics.Metrics
		rateLimiter middleware.RateLimiter
	}
)

// NewServer wires routes and the middleware stack around deps.
//
// Configuration (what) stays in cfg; collaborators (how) are injected through deps.
// Without a Logger, a JSON slog logger on stdout at cfg.LogLevel is created.
func NewServer(cfg *ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Store == nil || deps.Users == nil || deps.Integration == nil || deps.Reports == nil {
		return nil, ErrMissingDependency
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}))
	}

	mux := http.NewServeMux()

	server := &Server{
		logger:      logger,
		config:      cfg,
		store:       deps.Store,
		users:       deps.Users,
		integration: deps.Integration,
		reports:     deps.Reports,
		metrics:     deps.Metrics,
		rateLimiter: deps.RateLimiter,
	}

	server.setupRoutes(mux)

	if deps.RateLimiter != nil {
		logger.Info("Rate limiting middleware enabled")
	} else {
		logger.Warn("RateLimiter not configured - rate limiting middleware disabled")
	}

	// Middleware executes top-to-bottom:
	//   1. CorrelationID - tag every response, including recovered panics
	//   2. Recovery - catch panics in all downstream middleware
	//   3. RateLimit - reject floods before any work is done
	//   4. RequestLogger - log requests that got past the limiter
	//   5. CORS - header manipulation and preflight answers
	server.handler = middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithRateLimit(deps.RateLimiter, logger, middleware.TrustProxy(cfg.TrustProxy)),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	server.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return server, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT and SIGTERM signals.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("Starting userhub API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()),
			)

			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)

		return s.shutdown()
	}
}

// shutdown drains in-flight requests, then stops the rate limiter's cleanup.
// The database connection belongs to the caller and is closed there.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
	)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed",
			slog.String("error", err.Error()),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if limiter, ok := s.rateLimiter.(io.Closer); ok {
		if err := limiter.Close(); err != nil {
			s.logger.Error("Failed to close rate limiter", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("Server shutdown completed successfully")

	return nil
}
