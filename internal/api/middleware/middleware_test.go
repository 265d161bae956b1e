package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCORS struct {
	origins []string
}

func (c staticCORS) GetAllowedOrigins() []string { return c.origins }
func (c staticCORS) GetAllowedMethods() []string { return []string{"GET", "POST"} }
func (c staticCORS) GetAllowedHeaders() []string { return []string{"Content-Type"} }
func (c staticCORS) GetExposedHeaders() []string { return []string{"X-Integracao-Summary"} }
func (c staticCORS) GetMaxAge() int              { return 600 }

func TestCorrelationID(t *testing.T) {
	var seen string

	handler := CorrelationID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	t.Run("reuses valid incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "abc-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(CorrelationIDHeader))
	})

	t.Run("replaces missing or malformed id", func(t *testing.T) {
		for _, incoming := range []string{"", "has space", strings.Repeat("x", 200)} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(CorrelationIDHeader, incoming)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Len(t, seen, 36, "uuid expected for %q", incoming)
			assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))
		}
	})

	assert.Equal(t, "unknown", GetCorrelationID(t.Context()))
}

func TestRecovery(t *testing.T) {
	handler := Apply(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		WithCorrelationID(),
		WithRecovery(slog.New(slog.DiscardHandler)),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(CorrelationIDHeader, "cid-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "cid-1", problem["correlationId"])
	assert.Equal(t, "/api/users", problem["instance"])
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		handler := CORS(staticCORS{origins: []string{"*"}})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/users", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "X-Integracao-Summary", rec.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("listed origin echoed", func(t *testing.T) {
		handler := CORS(staticCORS{origins: []string{"https://app.example.com"}})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no allow header", func(t *testing.T) {
		handler := CORS(staticCORS{origins: []string{"https://app.example.com"}})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLogger_CapturesStatusAndSize(t *testing.T) {
	var logs strings.Builder

	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Apply(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("missing"))
		}),
		WithCorrelationID(),
		WithRequestLogger(logger),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope?x=1", nil))

	out := logs.String()
	assert.Contains(t, out, `"msg":"HTTP request completed"`)
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"status_code":404`)
	assert.Contains(t, out, `"bytes":7`)
	assert.Contains(t, out, `"query":"x=1"`)
}

func TestApply_FirstOptionIsOutermost(t *testing.T) {
	var order []string

	layer := func(name string) Option {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Apply(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), layer("outer"), WithRateLimit(nil, slog.New(slog.DiscardHandler)), layer("inner"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
