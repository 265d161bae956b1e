package report

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/users"
)

const (
	MsgInvalidStart = "dataInicio deve estar no formato YYYY-MM-DD"
	MsgInvalidEnd   = "dataFim deve estar no formato YYYY-MM-DD"
	MsgInvertedSpan = "dataInicio nao pode ser maior que dataFim"

	msgInvalidParams = "Parametros invalidos"
)

// BirthRange is an inclusive birth date filter in YYYY-MM-DD form.
type BirthRange struct {
	Start string `json:"dataInicio"`
	End   string `json:"dataFim"`
}

// ParseBirthRange reads dataInicio and dataFim from query. Both must be calendar
// dates and Start must not come after End.
func ParseBirthRange(query url.Values) (BirthRange, error) {
	r := BirthRange{
		Start: strings.TrimSpace(query.Get("dataInicio")),
		End:   strings.TrimSpace(query.Get("dataFim")),
	}

	var errs []string

	if !isDate(r.Start) {
		errs = append(errs, MsgInvalidStart)
	}

	if !isDate(r.End) {
		errs = append(errs, MsgInvalidEnd)
	}

	// YYYY-MM-DD orders lexically.
	if len(errs) == 0 && r.Start > r.End {
		errs = append(errs, MsgInvertedSpan)
	}

	if len(errs) > 0 {
		return BirthRange{}, users.NewValidationError(msgInvalidParams, errs...)
	}

	return r, nil
}

func isDate(value string) bool {
	if len(value) != len(users.DateLayout) {
		return false
	}

	_, err := time.Parse(users.DateLayout, value)

	return err == nil
}

// BirthReportFilename names the attachment for a birth range report.
func BirthReportFilename(r BirthRange) string {
	return fmt.Sprintf("relatorio-usuarios-%s-a-%s.pdf", r.Start, r.End)
}

// IntegrationReportFilename names the attachment for an integration run report.
func IntegrationReportFilename(p integration.Params) string {
	return fmt.Sprintf("relatorio-integracao-idade%d-max%d.pdf", p.IdadeMin, p.MaxRegistros)
}
