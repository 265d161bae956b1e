package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRun("completed", 2*time.Second)
	m.RecordRow("inserted")
	m.RecordRow("inserted")
	m.RecordRow("error")
	m.RecordUpstreamFailure()
	m.ObserveReport("usuarios", time.Now())

	assert.InDelta(t, 1, testutil.ToFloat64(m.IntegrationRuns.WithLabelValues("completed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.IntegrationRows.WithLabelValues("inserted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.IntegrationRows.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamFailures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReportsGenerated.WithLabelValues("usuarios")), 0)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	first := New()
	second := New()

	first.RecordUpstreamFailure()

	assert.InDelta(t, 0, testutil.ToFloat64(second.UpstreamFailures), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordRow("updated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `userhub_integration_rows_total{status="updated"} 1`)
}
