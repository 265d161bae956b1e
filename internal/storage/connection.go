package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	driverName     = "postgres"
	startupPingMax = 5 * time.Second
)

// ErrNoDatabaseConnection is returned when a store is built without a connection.
var ErrNoDatabaseConnection = errors.New("database connection is nil")

// Connection owns the bounded database/sql pool shared by every store in the process.
// It is created once in main, injected into stores, and closed on shutdown.
type Connection struct {
	DB *sql.DB
}

// NewConnection opens the pool described by cfg. When cfg.PingOnStartup is set the
// database must answer a ping before NewConnection returns.
func NewConnection(cfg *Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	db, err := sql.Open(driverName, cfg.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	conn := &Connection{DB: db}

	if cfg.PingOnStartup {
		ctx, cancel := context.WithTimeout(context.Background(), startupPingMax)
		defer cancel()

		if err := conn.HealthCheck(ctx); err != nil {
			_ = db.Close()

			return nil, err
		}
	}

	return conn, nil
}

// HealthCheck pings the database.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return ErrNoDatabaseConnection
	}

	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close releases every pooled connection.
func (c *Connection) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}

	return c.DB.Close()
}
