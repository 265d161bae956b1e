package config

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
)

const (
	readyLogOccurrences = 2
	containerStartup    = 120 * time.Second

	// migrationsSource is relative to any package directly under internal/.
	migrationsSource = "file://../../migrations"
)

// TestDatabase bundles the container and the open handle an integration test owns.
type TestDatabase struct {
	Container  *postgres.PostgresContainer
	Connection *sql.DB
	URL        string
}

// SetupTestDatabase starts a postgres:16-alpine container, applies migrations/*.sql and
// registers cleanup on t. Callers skip it in short mode:
//
//	if testing.Short() {
//		t.Skip("skipping integration test in short mode")
//	}
//	testDB := config.SetupTestDatabase(ctx, t)
func SetupTestDatabase(ctx context.Context, t *testing.T) *TestDatabase {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("userhub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(readyLogOccurrences).
				WithStartupTimeout(containerStartup),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	require.NotNil(t, pgContainer, "postgres container is nil")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	conn, err := sql.Open("postgres", connStr)
	require.NoError(t, err, "failed to open database")

	if err := RunTestMigrations(conn); err != nil {
		_ = conn.Close()
		_ = testcontainers.TerminateContainer(pgContainer)

		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		_ = testcontainers.TerminateContainer(pgContainer)
	})

	return &TestDatabase{
		Container:  pgContainer,
		Connection: conn,
		URL:        connStr,
	}
}

// RunTestMigrations applies every pending migration. migrate.ErrNoChange is not an error.
func RunTestMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsSource, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// TruncateUsers empties the usuario table and resets its id sequence between subtests.
func TruncateUsers(ctx context.Context, t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.ExecContext(ctx, "TRUNCATE TABLE usuario RESTART IDENTITY")
	require.NoError(t, err, "failed to truncate usuario")
}
