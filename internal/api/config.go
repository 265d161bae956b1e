// Package api serves the userhub HTTP surface: the usuario endpoints, the
// randomuser.me integration trigger and the PDF reports.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/userhub-io/userhub/internal/config"
)

const (
	defaultPort           int    = 3000
	maxPort               int    = 65535
	defaultHost           string = "0.0.0.0"
	defaultCORSMaxAge     int    = 86400
	defaultTimeout               = 30 * time.Second
	defaultWriteTimeout          = 2 * time.Minute
	defaultLogLevel              = slog.LevelInfo
	defaultMaxRequestSize int64  = 1 << 20
)

// Validate errors.
var (
	ErrInvalidPort            = errors.New("invalid port")
	ErrEmptyHost              = errors.New("host cannot be empty")
	ErrInvalidReadTimeout     = errors.New("read timeout must be positive")
	ErrInvalidWriteTimeout    = errors.New("write timeout must be positive")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidMaxRequestSize  = errors.New("max request size must be positive")
)

type (
	// ServerConfig is everything NewServer reads from the environment. Collaborators
	// such as stores and services arrive separately through Dependencies.
	ServerConfig struct {
		Port            int
		Host            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		LogLevel        slog.Level
		// MaxRequestSize caps POST bodies; larger bodies get 413.
		MaxRequestSize int64
		// TrustProxy keys rate limiting on X-Forwarded-For instead of RemoteAddr.
		TrustProxy bool
		CORS       CORSConfig
	}

	// CORSConfig is the browser access policy. It satisfies middleware.CORSConfig.
	CORSConfig struct {
		AllowedOrigins []string
		AllowedMethods []string
		AllowedHeaders []string
		// ExposedHeaders lets browser clients read the download and run headers.
		ExposedHeaders []string
		MaxAge         int
	}
)

// LoadServerConfig reads USERHUB_SERVER_*, USERHUB_CORS_* and friends. The port
// falls back to PORT, the variable most PaaS runtimes inject.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            config.GetEnvInt(defaultPort, "USERHUB_SERVER_PORT", "PORT"),
		Host:            config.GetEnvStr(defaultHost, "USERHUB_SERVER_HOST"),
		ReadTimeout:     config.GetEnvDuration(defaultTimeout, "USERHUB_SERVER_READ_TIMEOUT"),
		WriteTimeout:    config.GetEnvDuration(defaultWriteTimeout, "USERHUB_SERVER_WRITE_TIMEOUT"),
		ShutdownTimeout: config.GetEnvDuration(defaultTimeout, "USERHUB_SERVER_SHUTDOWN_TIMEOUT"),
		LogLevel:        config.GetEnvLogLevel(defaultLogLevel, "USERHUB_LOG_LEVEL"),
		MaxRequestSize:  config.GetEnvInt64(defaultMaxRequestSize, "USERHUB_MAX_REQUEST_SIZE"),
		TrustProxy:      config.GetEnvBool(false, "USERHUB_TRUST_PROXY"),
		CORS: CORSConfig{
			AllowedOrigins: envList("*", "USERHUB_CORS_ALLOWED_ORIGINS"),
			AllowedMethods: envList("GET,POST,OPTIONS", "USERHUB_CORS_ALLOWED_METHODS"),
			AllowedHeaders: envList("Content-Type,Accept,X-Correlation-ID", "USERHUB_CORS_ALLOWED_HEADERS"),
			ExposedHeaders: []string{
				"Content-Disposition",
				"X-Correlation-ID",
				headerIntegrationParams,
				headerIntegrationSummary,
			},
			MaxAge: config.GetEnvInt(defaultCORSMaxAge, "USERHUB_CORS_MAX_AGE"),
		},
	}
}

func envList(defaultValue, key string) []string {
	return config.ParseCommaSeparatedList(config.GetEnvStr(defaultValue, key))
}

// Address is the listen address; IPv6 hosts are bracketed.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ToCORSConfig returns the policy handed to middleware.WithCORS.
func (c *ServerConfig) ToCORSConfig() *CORSConfig {
	return &c.CORS
}

func (c *CORSConfig) GetAllowedOrigins() []string { return c.AllowedOrigins }
func (c *CORSConfig) GetAllowedMethods() []string { return c.AllowedMethods }
func (c *CORSConfig) GetAllowedHeaders() []string { return c.AllowedHeaders }
func (c *CORSConfig) GetExposedHeaders() []string { return c.ExposedHeaders }
func (c *CORSConfig) GetMaxAge() int              { return c.MaxAge }

// Validate rejects settings http.Server would misbehave with: ports outside
// 1-65535, an empty host, and non-positive timeouts or body limits.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, maxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	for _, d := range []struct {
		value time.Duration
		err   error
	}{
		{c.ReadTimeout, ErrInvalidReadTimeout},
		{c.WriteTimeout, ErrInvalidWriteTimeout},
		{c.ShutdownTimeout, ErrInvalidShutdownTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%w: got %v", d.err, d.value)
		}
	}

	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidMaxRequestSize, c.MaxRequestSize)
	}

	return nil
}
