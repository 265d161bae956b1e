package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/metrics"
	"github.com/userhub-io/userhub/internal/report"
	"github.com/userhub-io/userhub/internal/storage"
	"github.com/userhub-io/userhub/internal/users"
)

var testNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

type (
	stubFetcher struct {
		candidates []integration.Candidate
		err        error
	}

	// countingStore counts birth range queries and can fake an unhealthy store.
	countingStore struct {
		users.Store
		rangeCalls int
		healthErr  error
	}
)

func (f *stubFetcher) Fetch(context.Context, int) ([]integration.Candidate, error) {
	return f.candidates, f.err
}

func (s *countingStore) ListByBirthDateRange(ctx context.Context, start, end string) ([]users.User, error) {
	s.rangeCalls++

	return s.Store.ListByBirthDateRange(ctx, start, end)
}

func (s *countingStore) HealthCheck(ctx context.Context) error {
	if s.healthErr != nil {
		return s.healthErr
	}

	return s.Store.HealthCheck(ctx)
}

func testCandidate(email string, age int) integration.Candidate {
	return integration.Candidate{
		Gender: "male",
		Name:   integration.CandidateName{Title: "Mr", First: "Rafael", Last: "Teixeira"},
		Email:  email,
		Dob: integration.CandidateDob{
			Date: testNow.AddDate(-age, 0, 0).Format(users.DateLayout) + "T10:00:00.000Z",
			Age:  age,
		},
		Cell: "(31) 99999-0000",
	}
}

func testServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            3000,
		Host:            "127.0.0.1",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
		MaxRequestSize:  1024,
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		},
	}
}

func newTestServer(t *testing.T, store users.Store, fetcher integration.Fetcher) *Server {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	clock := func() time.Time { return testNow }

	userService, err := users.NewService(store, users.WithClock(clock), users.WithLogger(logger))
	require.NoError(t, err)

	m := metrics.New()

	integrationService, err := integration.NewService(fetcher, store,
		integration.WithClock(clock),
		integration.WithLogger(logger),
		integration.WithRecorder(m),
	)
	require.NoError(t, err)

	reportCfg := report.DefaultConfig()
	reportCfg.Report.Timezone = "UTC"

	server, err := NewServer(testServerConfig(), Dependencies{
		Store:       store,
		Users:       userService,
		Integration: integrationService,
		Reports:     report.NewRenderer(reportCfg, report.WithClock(clock)),
		Metrics:     m,
		Logger:      logger,
	})
	require.NoError(t, err)

	return server
}

func serve(t *testing.T, server *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()

	assert.Equal(t, contentTypeProblemJSON, rec.Header().Get("Content-Type"))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func postUser(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return serve(t, server, req)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(testServerConfig(), Dependencies{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestHealthEndpoints(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := &countingStore{Store: storage.NewInMemoryUserStore()}
	server := newTestServer(t, store, &stubFetcher{})

	rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", rec.Body.String())

	rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	store.healthErr = errors.New("db down")
	rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/nao-existe", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/nao-existe", decodeProblem(t, rec).Instance)
}

func TestUserEndpoints(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, storage.NewInMemoryUserStore(), &stubFetcher{})

	t.Run("create then get and list", func(t *testing.T) {
		rec := postUser(t, server, `{
			"email": "Paula@Example.com",
			"nome": "Paula",
			"sobrenome": "Ramos",
			"data_nascimento": "1990-04-10",
			"celular": "(41) 98888-1111",
			"genero": "female"
		}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created struct {
			Data    users.User `json:"data"`
			Updated bool       `json:"updated"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.False(t, created.Updated)
		assert.Equal(t, "paula@example.com", created.Data.Email)

		rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/api/users/1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"data_nascimento":"1990-04-10"`)

		rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var list struct {
			Data []users.User `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list.Data, 1)
	})

	t.Run("same email reports updated", func(t *testing.T) {
		rec := postUser(t, server, `{"email":"paula@example.com","nome":"Paula Maria","sobrenome":"Ramos",`+
			`"data_nascimento":"1990-04-10","genero":"f"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"updated":true`)
		assert.Contains(t, rec.Body.String(), `"id":1`)
	})

	t.Run("validation failure lists field messages", func(t *testing.T) {
		rec := postUser(t, server, `{"email":"not-an-email","nome":"","sobrenome":"X",`+
			`"data_nascimento":"1990-01-01","genero":"male"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		problem := decodeProblem(t, rec)
		assert.Equal(t, []string{users.MsgInvalidEmail, users.MsgMissingNome}, problem.Errors)
	})

	t.Run("underage is rejected", func(t *testing.T) {
		birth := testNow.AddDate(-18, 0, 0).Format(users.DateLayout)
		rec := postUser(t, server, `{"email":"teen@example.com","nome":"T","sobrenome":"Y",`+
			`"data_nascimento":"`+birth+`","genero":"male"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{users.MsgNotAdult}, decodeProblem(t, rec).Errors)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := postUser(t, server, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		rec := postUser(t, server, `{"nome":"`+strings.Repeat("a", 2048)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("email=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		assert.Equal(t, http.StatusUnsupportedMediaType, serve(t, server, req).Code)
	})

	t.Run("invalid and unknown ids", func(t *testing.T) {
		rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/users/abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/api/users/0", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/api/users/999", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestIntegrateEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	fetcher := &stubFetcher{candidates: []integration.Candidate{
		testCandidate("a@example.com", 40),
		testCandidate("young@example.com", 18),
		testCandidate("b@example.com", 35),
		testCandidate("c@example.com", 50),
	}}

	t.Run("json response", func(t *testing.T) {
		server := newTestServer(t, storage.NewInMemoryUserStore(), fetcher)

		req := httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar?idadeMin=30&maxRegistros=2", nil)
		rec := serve(t, server, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body integrationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		assert.Equal(t, "Integracao concluida", body.Message)
		assert.NotEmpty(t, body.RunID)
		assert.Equal(t, 4, body.TotalFetched)
		assert.Equal(t, 30, body.IdadeMin)
		assert.Equal(t, 2, body.MaxRegistros)
		assert.Equal(t, integration.Summary{Attempted: 2, Inserted: 2, Success: 2}, body.Summary)
		assert.Equal(t, map[string]string{"idadeMin": "30", "maxRegistros": "2"}, body.Request.Query)

		metricsRec := serve(t, server, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Contains(t, metricsRec.Body.String(), `userhub_integration_runs_total{outcome="completed"} 1`)
	})

	t.Run("pdf download", func(t *testing.T) {
		server := newTestServer(t, storage.NewInMemoryUserStore(), fetcher)

		req := httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar?idade=0&max=3&download=SIM", nil)
		rec := serve(t, server, req)
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, contentTypePDF, rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="relatorio-integracao-idade0-max3.pdf"`,
			rec.Header().Get("Content-Disposition"))
		assert.JSONEq(t, `{"idadeMin":0,"maxRegistros":3}`, rec.Header().Get(headerIntegrationParams))
		assert.JSONEq(t, `{"attempted":3,"inserted":2,"updated":0,"success":2,"errors":1}`,
			rec.Header().Get(headerIntegrationSummary))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("accept header selects pdf", func(t *testing.T) {
		server := newTestServer(t, storage.NewInMemoryUserStore(), fetcher)

		req := httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar", nil)
		req.Header.Set("Accept", "application/pdf")

		assert.Equal(t, contentTypePDF, serve(t, server, req).Header().Get("Content-Type"))
	})

	t.Run("invalid params", func(t *testing.T) {
		server := newTestServer(t, storage.NewInMemoryUserStore(), fetcher)

		req := httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar?idadeMin=-1&maxRegistros=500", nil)
		rec := serve(t, server, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t,
			[]string{integration.MsgInvalidMinAge, integration.MsgMaxRecordsTooHigh},
			decodeProblem(t, rec).Errors)
	})

	t.Run("upstream failure", func(t *testing.T) {
		server := newTestServer(t, storage.NewInMemoryUserStore(),
			&stubFetcher{err: integration.NewUpstreamError(http.StatusServiceUnavailable, errors.New("down"))})

		rec := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestBirthReportEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx := t.Context()
	store := &countingStore{Store: storage.NewInMemoryUserStore()}
	server := newTestServer(t, store, &stubFetcher{})

	userService, err := users.NewService(store, users.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	_, err = userService.Create(ctx, users.Input{
		Email: "r@example.com", Nome: "R", Sobrenome: "S", DataNascimento: "1995-05-05", Genero: "m",
	})
	require.NoError(t, err)

	t.Run("inverted range fails before store access", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/relatorios/usuarios?dataInicio=2000-01-01&dataFim=1999-01-01", nil)
		rec := serve(t, server, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{report.MsgInvertedSpan}, decodeProblem(t, rec).Errors)
		assert.Zero(t, store.rangeCalls)
	})

	t.Run("empty range still returns a pdf", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/relatorios/usuarios?dataInicio=1800-01-01&dataFim=1800-12-31", nil)
		rec := serve(t, server, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("matching range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/relatorios/usuarios?dataInicio=1990-01-01&dataFim=1999-12-31", nil)
		rec := serve(t, server, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="relatorio-usuarios-1990-01-01-a-1999-12-31.pdf"`,
			rec.Header().Get("Content-Disposition"))
		assert.Equal(t, 2, store.rangeCalls)
	})
}

func TestWritePDF_RunHeadersOnlyOnSuccess(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, storage.NewInMemoryUserStore(), &stubFetcher{})

	runHeaders := http.Header{}
	runHeaders.Set(headerIntegrationParams, `{"idadeMin":0,"maxRegistros":1}`)
	runHeaders.Set(headerIntegrationSummary, `{"attempted":0}`)

	t.Run("render failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar?download=1", nil)

		server.writePDF(rec, req, reportKindIntegration, "x.pdf", runHeaders, func(*bytes.Buffer) error {
			return report.ErrLayoutOverflow
		})

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		decodeProblem(t, rec)
		assert.Empty(t, rec.Header().Get(headerIntegrationParams))
		assert.Empty(t, rec.Header().Get(headerIntegrationSummary))
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
	})

	t.Run("rendered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/users/usuarios/integrar?download=1", nil)

		server.writePDF(rec, req, reportKindIntegration, "x.pdf", runHeaders, func(buf *bytes.Buffer) error {
			_, err := buf.WriteString("%PDF-1.3")

			return err
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, runHeaders.Get(headerIntegrationParams), rec.Header().Get(headerIntegrationParams))
		assert.Equal(t, runHeaders.Get(headerIntegrationSummary), rec.Header().Get(headerIntegrationSummary))
		assert.Equal(t, "8", rec.Header().Get("Content-Length"))
	})
}

func TestProblemFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{users.NewValidationError("x", "y"), http.StatusBadRequest},
		{users.ErrNotFound, http.StatusNotFound},
		{users.ErrDuplicateEmail, http.StatusConflict},
		{integration.NewUpstreamError(0, errors.New("dial")), http.StatusBadGateway},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		problem := problemFor(tt.err)

		assert.Equal(t, tt.status, problem.Status, tt.err.Error())
	}

	assert.Equal(t, msgInternal, problemFor(errors.New("secret")).Detail, "internal detail is withheld")
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("USERHUB_SERVER_PORT", "")
	t.Setenv("PORT", "8081")

	cfg := LoadServerConfig()
	assert.Equal(t, 8081, cfg.Port)
	require.NoError(t, cfg.Validate())

	t.Setenv("USERHUB_SERVER_PORT", "9090")
	assert.Equal(t, 9090, LoadServerConfig().Port)

	assert.Contains(t, cfg.CORS.ExposedHeaders, headerIntegrationSummary)

	cfg.Host = "::1"
	assert.Equal(t, "[::1]:8081", cfg.Address())

	cfg.ShutdownTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidShutdownTimeout)

	cfg.Port = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)
}
