package integration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/userhub-io/userhub/internal/users"
)

const msgPersistFailed = "falha ao persistir usuario"

var (
	// ErrNilFetcher is returned by NewService when no Fetcher is supplied.
	ErrNilFetcher = errors.New("integration fetcher cannot be nil")

	// ErrNilStore is returned by NewService when no Store is supplied.
	ErrNilStore = errors.New("integration store cannot be nil")
)

type (
	// Recorder receives run telemetry. The metrics package provides the Prometheus one.
	Recorder interface {
		ObserveRun(outcome string, duration time.Duration)
		RecordRow(status string)
		RecordUpstreamFailure()
	}

	// Service runs integrations. Candidates are processed one at a time, each upsert
	// being its own atomic store operation.
	Service struct {
		fetcher  Fetcher
		store    users.Store
		logger   *slog.Logger
		recorder Recorder
		now      func() time.Time
	}

	// Option configures optional Service behavior.
	Option func(*Service)

	nopRecorder struct{}
)

func (nopRecorder) ObserveRun(string, time.Duration) {}
func (nopRecorder) RecordRow(string)                 {}
func (nopRecorder) RecordUpstreamFailure()           {}

// WithLogger sets the logger for per-candidate and per-run lines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRecorder sets the telemetry sink.
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithClock replaces time.Now for the adult-age rule.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service that fetches from fetcher and writes to store.
func NewService(fetcher Fetcher, store users.Store, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}

	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		fetcher:  fetcher,
		store:    store,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Run executes one integration. Only invalid params (*users.ValidationError) and a
// failed fetch (*UpstreamError) return an error; per-candidate failures become rows.
func (s *Service) Run(ctx context.Context, params Params) (*Result, error) {
	startTime := time.Now()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))

	fetched, err := s.fetcher.Fetch(ctx, FetchSize)
	if err != nil {
		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) {
			err = NewUpstreamError(0, err)
		}

		logger.Error("Upstream fetch failed", slog.String("error", err.Error()))
		s.recorder.RecordUpstreamFailure()
		s.recorder.ObserveRun("upstream_error", time.Since(startTime))

		return nil, err
	}

	eligible := selectCandidates(fetched, params)
	builder := newResultBuilder(runID, len(fetched), params, len(eligible))
	now := s.now()

	for i, candidate := range eligible {
		row := s.process(ctx, candidate, now)
		if row.Status == StatusError {
			logger.Warn("Candidate rejected",
				slog.Int("index", i),
				slog.String("email", row.Email),
				slog.String("reason", row.Error),
			)
		}

		s.recorder.RecordRow(string(row.Status))
		builder.add(row)
	}

	result := builder.build()

	logger.Info("Integration run completed",
		slog.Int("total_fetched", result.TotalFetched),
		slog.Int("idade_min", params.IdadeMin),
		slog.Int("max_registros", params.MaxRegistros),
		slog.Int("attempted", result.Summary.Attempted),
		slog.Int("inserted", result.Summary.Inserted),
		slog.Int("updated", result.Summary.Updated),
		slog.Int("errors", result.Summary.Errors),
		slog.Duration("duration", time.Since(startTime)),
	)
	s.recorder.ObserveRun("completed", time.Since(startTime))

	return result, nil
}

// selectCandidates keeps candidates whose reported age is at least IdadeMin, then
// takes the first MaxRegistros of them in upstream order.
func selectCandidates(fetched []Candidate, params Params) []Candidate {
	eligible := make([]Candidate, 0, min(len(fetched), params.MaxRegistros))

	for _, candidate := range fetched {
		if len(eligible) == params.MaxRegistros {
			break
		}

		if candidate.Dob.Age >= params.IdadeMin {
			eligible = append(eligible, candidate)
		}
	}

	return eligible
}

// process runs normalize, the adult-age rule and the upsert for one candidate and
// always returns its Row.
func (s *Service) process(ctx context.Context, candidate Candidate, now time.Time) Row {
	record, err := users.Normalize(candidate.Input())
	if err != nil {
		return rejectedRow(candidate, reason(err))
	}

	if err := users.EnsureAdult(record.DataNascimento, now); err != nil {
		return rejectedRow(candidate, reason(err))
	}

	outcome, err := s.store.Upsert(ctx, record)
	if err != nil {
		s.logger.Error("Candidate upsert failed",
			slog.String("email", record.Email),
			slog.String("error", err.Error()),
		)

		return rejectedRow(candidate, msgPersistFailed)
	}

	return persistedRow(record, outcome)
}

func reason(err error) string {
	var validationErr *users.ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Errors) > 0 {
		return validationErr.Joined()
	}

	return err.Error()
}
