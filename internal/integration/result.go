package integration

import (
	"strings"

	"github.com/userhub-io/userhub/internal/users"
)

// maxErrorRunes bounds the error text kept on a row.
const maxErrorRunes = 200

// Status tags the outcome of one candidate.
type Status string

const (
	StatusInserted Status = "inserted"
	StatusUpdated  Status = "updated"
	StatusError    Status = "error"
)

type (
	// Row is the outcome of one processed candidate. Rejected candidates keep a
	// best-effort copy of their raw fields so reports can show what was refused.
	Row struct {
		Status         Status  `json:"status"`
		ID             *int64  `json:"id,omitempty"`
		Email          string  `json:"email"`
		Nome           string  `json:"nome"`
		Sobrenome      string  `json:"sobrenome"`
		DataNascimento *string `json:"data_nascimento"` //nolint: tagliatelle
		Celular        *string `json:"celular"`
		Genero         *string `json:"genero"`
		Error          string  `json:"error,omitempty"`
	}

	// Summary counts a run's outcomes. Attempted = Inserted + Updated + Errors and
	// Success = Inserted + Updated.
	Summary struct {
		Attempted int `json:"attempted"`
		Inserted  int `json:"inserted"`
		Updated   int `json:"updated"`
		Success   int `json:"success"`
		Errors    int `json:"errors"`
	}

	// Result is everything one integration run produced.
	Result struct {
		RunID        string  `json:"runId"`
		TotalFetched int     `json:"totalFetched"`
		Params       Params  `json:"params"`
		Summary      Summary `json:"summary"`
		Rows         []Row   `json:"rows"`
	}

	// resultBuilder accumulates one Row per candidate in processing order.
	resultBuilder struct {
		result Result
	}
)

func newResultBuilder(runID string, totalFetched int, params Params, capacity int) *resultBuilder {
	return &resultBuilder{
		result: Result{
			RunID:        runID,
			TotalFetched: totalFetched,
			Params:       params,
			Rows:         make([]Row, 0, capacity),
		},
	}
}

// add records row and updates the summary counters for its status.
func (b *resultBuilder) add(row Row) {
	b.result.Summary.Attempted++

	switch row.Status {
	case StatusInserted:
		b.result.Summary.Inserted++
	case StatusUpdated:
		b.result.Summary.Updated++
	case StatusError:
		b.result.Summary.Errors++
	}

	b.result.Summary.Success = b.result.Summary.Inserted + b.result.Summary.Updated
	b.result.Rows = append(b.result.Rows, row)
}

func (b *resultBuilder) build() *Result {
	result := b.result

	return &result
}

// persistedRow describes a candidate that reached the store.
func persistedRow(record users.Record, outcome users.UpsertResult) Row {
	id := outcome.ID
	birth := record.DataNascimento

	row := Row{
		Status:         StatusInserted,
		ID:             &id,
		Email:          record.Email,
		Nome:           record.Nome,
		Sobrenome:      record.Sobrenome,
		DataNascimento: &birth,
		Celular:        record.Celular,
	}

	if outcome.Decision == users.DecisionUpdate {
		row.Status = StatusUpdated
	}

	if record.Genero != nil {
		gender := string(*record.Genero)
		row.Genero = &gender
	}

	return row
}

// rejectedRow keeps the candidate's raw fields in display form next to the reason.
func rejectedRow(c Candidate, reason string) Row {
	return Row{
		Status:         StatusError,
		Email:          users.NormalizeEmail(c.Email),
		Nome:           strings.TrimSpace(c.Name.First),
		Sobrenome:      strings.TrimSpace(c.Name.Last),
		DataNascimento: displayValue(c.BirthDate()),
		Celular:        displayValue(c.Mobile()),
		Genero:         displayValue(strings.ToLower(c.Gender)),
		Error:          TruncateMessage(reason, maxErrorRunes),
	}
}

func displayValue(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	return &value
}

// TruncateMessage shortens message to at most limit runes, ending with "..." when cut.
func TruncateMessage(message string, limit int) string {
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}

	const ellipsis = "..."
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}

	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
