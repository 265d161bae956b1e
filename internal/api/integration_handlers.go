package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/userhub-io/userhub/internal/config"
	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/report"
)

const (
	headerIntegrationParams  = "X-Integracao-Params"
	headerIntegrationSummary = "X-Integracao-Summary"
)

type (
	integrationResponse struct {
		Message      string              `json:"message"`
		RunID        string              `json:"runId"`
		Inserted     int                 `json:"inserted"`
		TotalFetched int                 `json:"totalFetched"`
		IdadeMin     int                 `json:"idadeMin"`
		MaxRegistros int                 `json:"maxRegistros"`
		Summary      integration.Summary `json:"summary"`
		Request      requestEcho         `json:"request"`
	}

	requestEcho struct {
		Query map[string]string `json:"query"`
	}
)

// handleIntegrateUsers handles POST /api/users/usuarios/integrar. The run answers
// JSON unless download is truthy or Accept asks for PDF.
func (s *Server) handleIntegrateUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params, err := integration.ParseParams(query)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	result, err := s.integration.Run(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	if !wantsPDF(r) {
		s.writeJSON(w, r, http.StatusOK, integrationResponse{
			Message:      "Integracao concluida",
			RunID:        result.RunID,
			Inserted:     result.Summary.Inserted,
			TotalFetched: result.TotalFetched,
			IdadeMin:     result.Params.IdadeMin,
			MaxRegistros: result.Params.MaxRegistros,
			Summary:      result.Summary,
			Request:      requestEcho{Query: flattenQuery(query)},
		})

		return
	}

	paramsHeader, err := json.Marshal(result.Params)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	summaryHeader, err := json.Marshal(result.Summary)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	runHeaders := http.Header{}
	runHeaders.Set(headerIntegrationParams, string(paramsHeader))
	runHeaders.Set(headerIntegrationSummary, string(summaryHeader))

	s.writePDF(w, r, reportKindIntegration, report.IntegrationReportFilename(result.Params), runHeaders,
		func(buf *bytes.Buffer) error {
			return s.reports.IntegrationReport(buf, result)
		})
}

// wantsPDF reports whether download is truthy (1, true, yes, sim) or Accept
// includes application/pdf.
func wantsPDF(r *http.Request) bool {
	if download, ok := config.ParseBool(r.URL.Query().Get("download")); ok && download {
		return true
	}

	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), contentTypePDF)
}

func flattenQuery(query map[string][]string) map[string]string {
	out := make(map[string]string, len(query))

	for key, values := range query {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}

	return out
}
