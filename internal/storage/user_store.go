package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/userhub-io/userhub/internal/users"
)

const (
	// insertManyChunk keeps one bulk statement well under PostgreSQL's 65535 bind parameters.
	insertManyChunk = 500
	columnsPerRow   = 6

	pgUniqueViolation = "23505"

	selectUserColumns = `id, email, nome, sobrenome, to_char(data_nascimento, 'YYYY-MM-DD'), celular, genero`
)

var (
	// ErrUserStoreFailed wraps unexpected failures of the usuario queries.
	ErrUserStoreFailed = errors.New("user storage failed")

	// ErrConnectionLost is returned when the database connection dropped mid-operation.
	ErrConnectionLost = errors.New("database connection lost")
)

type (
	// UserStore implements users.Store on the PostgreSQL usuario table.
	UserStore struct {
		conn   *Connection
		logger *slog.Logger
	}

	// UserStoreOption configures optional UserStore behavior.
	UserStoreOption func(*UserStore)

	rowScanner interface {
		Scan(dest ...any) error
	}
)

// WithStoreLogger sets the logger used for store diagnostics.
func WithStoreLogger(logger *slog.Logger) UserStoreOption {
	return func(s *UserStore) {
		s.logger = logger
	}
}

// NewUserStore creates a UserStore on conn. The connection is owned by the caller.
func NewUserStore(conn *Connection, opts ...UserStoreOption) (*UserStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	s := &UserStore{
		conn:   conn,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// HealthCheck delegates to the connection ping.
func (s *UserStore) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// FindAll returns every user ordered by id.
func (s *UserStore) FindAll(ctx context.Context) ([]users.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM usuario ORDER BY id`

	return s.queryUsers(ctx, "find_all", query)
}

// FindByID returns the user with id, or nil when absent.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*users.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM usuario WHERE id = $1`

	return s.queryUser(ctx, "find_by_id", query, id)
}

// FindByEmail returns the user stored under the normalized email, or nil when absent.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM usuario WHERE email = $1`

	return s.queryUser(ctx, "find_by_email", query, users.NormalizeEmail(email))
}

// ListByBirthDateRange returns users born between start and end inclusive, oldest first.
func (s *UserStore) ListByBirthDateRange(ctx context.Context, start, end string) ([]users.User, error) {
	query := `
		SELECT ` + selectUserColumns + `
		FROM usuario
		WHERE data_nascimento BETWEEN $1::date AND $2::date
		ORDER BY data_nascimento ASC, id ASC
	`

	return s.queryUsers(ctx, "list_by_birth_date_range", query, start, end)
}

// InsertOne inserts record and returns its new id. An existing email yields
// users.ErrDuplicateEmail.
func (s *UserStore) InsertOne(ctx context.Context, record users.Record) (int64, error) {
	query := `
		INSERT INTO usuario (email, nome, sobrenome, data_nascimento, celular, genero)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64

	err := s.conn.DB.QueryRowContext(ctx, query, recordArgs(record)...).Scan(&id)
	if err != nil {
		return 0, s.classify("insert_one", err)
	}

	return id, nil
}

// InsertMany bulk-inserts records, skipping emails that already exist, and returns the
// number of rows created. Records are written in chunks; each chunk is one statement.
func (s *UserStore) InsertMany(ctx context.Context, records []users.Record) (int64, error) {
	var total int64

	for start := 0; start < len(records); start += insertManyChunk {
		end := min(start+insertManyChunk, len(records))

		query, args := buildInsertMany(records[start:end])

		result, err := s.conn.DB.ExecContext(ctx, query, args...)
		if err != nil {
			return total, s.classify("insert_many", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return total, s.classify("insert_many", err)
		}

		total += affected
	}

	return total, nil
}

func buildInsertMany(records []users.Record) (string, []any) {
	var b strings.Builder

	args := make([]any, 0, len(records)*columnsPerRow)

	b.WriteString(`INSERT INTO usuario (email, nome, sobrenome, data_nascimento, celular, genero) VALUES `)

	for i, record := range records {
		if i > 0 {
			b.WriteString(", ")
		}

		base := i * columnsPerRow
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)

		args = append(args, recordArgs(record)...)
	}

	b.WriteString(` ON CONFLICT (email) DO NOTHING`)

	return b.String(), args
}

// UpdateByEmail overwrites the row stored under email and returns rows affected.
func (s *UserStore) UpdateByEmail(ctx context.Context, email string, record users.Record) (int64, error) {
	query := `
		UPDATE usuario SET
			nome = $2,
			sobrenome = $3,
			data_nascimento = $4,
			celular = $5,
			genero = $6,
			updated_at = CURRENT_TIMESTAMP
		WHERE email = $1
	`

	record.Email = users.NormalizeEmail(email)

	result, err := s.conn.DB.ExecContext(ctx, query, recordArgs(record)...)
	if err != nil {
		return 0, s.classify("update_by_email", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, s.classify("update_by_email", err)
	}

	return affected, nil
}

// Upsert inserts record or updates the row already holding its email in one statement.
// RETURNING (xmax = 0) is true only for freshly inserted tuples.
func (s *UserStore) Upsert(ctx context.Context, record users.Record) (users.UpsertResult, error) {
	startTime := time.Now()

	query := `
		INSERT INTO usuario (email, nome, sobrenome, data_nascimento, celular, genero)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email)
		DO UPDATE SET
			nome = EXCLUDED.nome,
			sobrenome = EXCLUDED.sobrenome,
			data_nascimento = EXCLUDED.data_nascimento,
			celular = EXCLUDED.celular,
			genero = EXCLUDED.genero,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0) AS inserted
	`

	var (
		id       int64
		inserted bool
	)

	if err := s.conn.DB.QueryRowContext(ctx, query, recordArgs(record)...).Scan(&id, &inserted); err != nil {
		return users.UpsertResult{}, s.classify("upsert", err)
	}

	decision := users.DecisionInsert
	if !inserted {
		decision = users.DecisionUpdate
	}

	s.logger.Debug("User upserted",
		slog.Int64("user_id", id),
		slog.String("operation", string(decision)),
		slog.Int64("duration_ms", time.Since(startTime).Milliseconds()),
	)

	return users.UpsertResult{ID: id, Decision: decision}, nil
}

func (s *UserStore) queryUser(ctx context.Context, op, query string, args ...any) (*users.User, error) {
	user, err := scanUser(s.conn.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint: nilnil
	}

	if err != nil {
		return nil, s.classify(op, err)
	}

	return user, nil
}

func (s *UserStore) queryUsers(ctx context.Context, op, query string, args ...any) ([]users.User, error) {
	rows, err := s.conn.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.classify(op, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	found := make([]users.User, 0)

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, s.classify(op, err)
		}

		found = append(found, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, s.classify(op, err)
	}

	return found, nil
}

// classify maps driver errors onto the domain and storage sentinels.
func (s *UserStore) classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", users.ErrDuplicateEmail, pqErr.Detail)
	}

	if isDatabaseConnectionError(err) {
		s.logger.Error("Database connection lost", slog.String("operation", op), slog.String("error", err.Error()))

		return fmt.Errorf("%w: %s: %w", ErrConnectionLost, op, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrUserStoreFailed, op, err)
}

// isDatabaseConnectionError reports PostgreSQL class 08 errors and the database/sql
// connection sentinels.
func isDatabaseConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

func scanUser(row rowScanner) (*users.User, error) {
	var (
		user   users.User
		birth  sql.NullString
		phone  sql.NullString
		gender sql.NullString
	)

	if err := row.Scan(&user.ID, &user.Email, &user.Nome, &user.Sobrenome, &birth, &phone, &gender); err != nil {
		return nil, err
	}

	if birth.Valid {
		user.DataNascimento = &birth.String
	}

	if phone.Valid {
		user.Celular = &phone.String
	}

	if gender.Valid {
		g := users.Gender(gender.String)
		user.Genero = &g
	}

	return &user, nil
}

func recordArgs(record users.Record) []any {
	var birth any
	if record.DataNascimento != "" {
		birth = record.DataNascimento
	}

	var gender any
	if record.Genero != nil {
		gender = string(*record.Genero)
	}

	var phone any
	if record.Celular != nil {
		phone = *record.Celular
	}

	return []any{record.Email, record.Nome, record.Sobrenome, birth, phone, gender}
}
