// Package storage provides PostgreSQL and in-memory implementations of users.Store.
package storage

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/userhub-io/userhub/internal/config"
)

const (
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultDBPort          = 5432
)

var (
	// ErrDatabaseURLEmpty is returned when neither DATABASE_URL nor DB_HOST/DB_NAME are set.
	ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

	// ErrInvalidPoolSize is returned when MaxOpenConns is not positive.
	ErrInvalidPoolSize = errors.New("max open connections must be positive")
)

// Config holds the PostgreSQL connection settings and pool bounds.
type Config struct {
	databaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingOnStartup   bool
}

// LoadConfig reads DATABASE_URL, or assembles a URL from DB_HOST, DB_PORT, DB_USER,
// DB_PASSWORD and DB_NAME when DATABASE_URL is unset.
func LoadConfig() *Config {
	databaseURL := config.GetEnvStr("", "DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL(
			config.GetEnvStr("", "DB_HOST"),
			config.GetEnvInt(defaultDBPort, "DB_PORT"),
			config.GetEnvStr("", "DB_USER"),
			config.GetEnvStr("", "DB_PASSWORD"),
			config.GetEnvStr("", "DB_NAME"),
			config.GetEnvStr("disable", "DB_SSLMODE"),
		)
	}

	return &Config{
		databaseURL:     databaseURL,
		MaxOpenConns:    config.GetEnvInt(defaultMaxOpenConns, "DATABASE_MAX_OPEN_CONNS"),
		MaxIdleConns:    config.GetEnvInt(defaultMaxIdleConns, "DATABASE_MAX_IDLE_CONNS"),
		ConnMaxLifetime: config.GetEnvDuration(defaultConnMaxLifetime, "DATABASE_CONN_MAX_LIFETIME"),
		ConnMaxIdleTime: config.GetEnvDuration(defaultConnMaxIdleTime, "DATABASE_CONN_MAX_IDLE_TIME"),
		PingOnStartup:   config.GetEnvBool(true, "DB_PING_ON_STARTUP"),
	}
}

// NewConfig builds a Config for an explicit URL with default pool settings.
func NewConfig(databaseURL string) *Config {
	return &Config{
		databaseURL:     databaseURL,
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
		PingOnStartup:   true,
	}
}

func buildDatabaseURL(host string, port int, user, password, name, sslMode string) string {
	if host == "" || name == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + name,
	}

	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()

	return u.String()
}

// Validate checks the URL is present and the pool bounds make sense.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPoolSize, c.MaxOpenConns)
	}

	return nil
}

// MaskDatabaseURL returns the URL with any password replaced by ***.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	u, err := url.Parse(c.databaseURL)
	if err != nil || u.User == nil {
		return c.databaseURL
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return c.databaseURL
	}

	// url.UserPassword would escape the mask as %2A%2A%2A, so splice it in after String.
	u.User = url.User(u.User.Username())
	masked := u.String()

	at := strings.Index(masked, "@")
	if at < 0 {
		return masked
	}

	return masked[:at] + ":***" + masked[at:]
}
