// Package metrics exposes Prometheus instruments for integration runs and reports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every userhub instrument registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	IntegrationRuns       *prometheus.CounterVec
	IntegrationRows       *prometheus.CounterVec
	UpstreamFailures      prometheus.Counter
	IntegrationDuration   prometheus.Histogram
	ReportsGenerated      *prometheus.CounterVec
	ReportRenderDurations *prometheus.HistogramVec
}

// New registers all instruments, plus the Go runtime and process collectors, on a
// fresh registry. Separate instances never collide, which keeps tests independent.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		IntegrationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userhub_integration_runs_total",
			Help: "Integration runs by outcome (completed, upstream_error)",
		}, []string{"outcome"}),
		IntegrationRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userhub_integration_rows_total",
			Help: "Processed integration candidates by status (inserted, updated, error)",
		}, []string{"status"}),
		UpstreamFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "userhub_upstream_failures_total",
			Help: "Failed fetches from the random-person upstream",
		}),
		IntegrationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "userhub_integration_duration_seconds",
			Help:    "Wall time of integration runs",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userhub_reports_generated_total",
			Help: "PDF reports rendered by kind (usuarios, integracao)",
		}, []string{"kind"}),
		ReportRenderDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userhub_report_render_duration_seconds",
			Help:    "Time spent rendering PDF reports",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
	}
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a finished integration run.
func (m *Metrics) ObserveRun(outcome string, duration time.Duration) {
	m.IntegrationRuns.WithLabelValues(outcome).Inc()
	m.IntegrationDuration.Observe(duration.Seconds())
}

// RecordRow counts one processed candidate.
func (m *Metrics) RecordRow(status string) {
	m.IntegrationRows.WithLabelValues(status).Inc()
}

// RecordUpstreamFailure counts one failed upstream fetch.
func (m *Metrics) RecordUpstreamFailure() {
	m.UpstreamFailures.Inc()
}

// ObserveReport records a rendered report. Call with time.Now() taken before rendering.
func (m *Metrics) ObserveReport(kind string, start time.Time) {
	m.ReportsGenerated.WithLabelValues(kind).Inc()
	m.ReportRenderDurations.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
