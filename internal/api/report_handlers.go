package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/userhub-io/userhub/internal/api/middleware"
	"github.com/userhub-io/userhub/internal/report"
)

const (
	contentTypePDF = "application/pdf"

	reportKindBirth       = "usuarios"
	reportKindIntegration = "integracao"
)

// handleBirthReport handles GET /api/relatorios/usuarios. The range is validated
// before the store is queried.
func (s *Server) handleBirthReport(w http.ResponseWriter, r *http.Request) {
	birthRange, err := report.ParseBirthRange(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	found, err := s.store.ListByBirthDateRange(r.Context(), birthRange.Start, birthRange.End)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("list users by birth range: %w", err))

		return
	}

	s.writePDF(w, r, reportKindBirth, report.BirthReportFilename(birthRange), nil,
		func(buf *bytes.Buffer) error {
			return s.reports.BirthReport(buf, report.BirthReportData{Range: birthRange, Users: found})
		})
}

// writePDF renders into memory first so a rendering failure still yields a 500
// problem instead of a truncated attachment. extra headers are only sent with the PDF.
func (s *Server) writePDF(
	w http.ResponseWriter,
	r *http.Request,
	kind, filename string,
	extra http.Header,
	render func(*bytes.Buffer) error,
) {
	start := time.Now()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.writeError(w, r, fmt.Errorf("render %s report: %w", kind, err))

		return
	}

	if s.metrics != nil {
		s.metrics.ObserveReport(kind, start)
	}

	for key, values := range extra {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.Header().Set("Content-Type", contentTypePDF)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("Failed to stream report",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
