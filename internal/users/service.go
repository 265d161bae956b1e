package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const msgInvalidID = "id deve ser um inteiro positivo"

// ErrNilStore is returned by NewService when no Store is supplied.
var ErrNilStore = errors.New("users store cannot be nil")

type (
	// Service implements the user listing, lookup and create operations.
	Service struct {
		store  Store
		logger *slog.Logger
		now    func() time.Time
	}

	// ServiceOption configures optional Service behavior.
	ServiceOption func(*Service)

	// CreateResult is the persisted user plus whether an existing row was updated.
	CreateResult struct {
		User    User
		Updated bool
	}
)

// WithClock replaces time.Now for the adult-age rule.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// List returns every stored user ordered by id.
func (s *Service) List(ctx context.Context) ([]User, error) {
	found, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return found, nil
}

// Get returns the user with id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, NewValidationError("Parametros invalidos", msgInvalidID)
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	if user == nil {
		return nil, ErrNotFound
	}

	return user, nil
}

// Create normalizes in, enforces the adult-age rule and upserts the record by email.
// Nothing is written when validation fails.
func (s *Service) Create(ctx context.Context, in Input) (*CreateResult, error) {
	record, err := s.Prepare(in)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Upsert(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", record.Email, err)
	}

	s.logger.Info("User persisted",
		slog.Int64("user_id", result.ID),
		slog.String("operation", string(result.Decision)),
	)

	return &CreateResult{
		User:    record.ToUser(result.ID),
		Updated: result.Decision == DecisionUpdate,
	}, nil
}

// Prepare runs Normalize then EnsureAdult against the service clock.
func (s *Service) Prepare(in Input) (Record, error) {
	record, err := Normalize(in)
	if err != nil {
		return Record{}, err
	}

	if err := EnsureAdult(record.DataNascimento, s.now()); err != nil {
		return Record{}, err
	}

	return record, nil
}

// ParseID parses a path id that must be a positive integer.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewValidationError("Parametros invalidos", msgInvalidID)
	}

	return id, nil
}
