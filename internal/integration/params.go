// Package integration imports people from the upstream random-person source into the
// usuario table: it filters and caps the fetched candidates, runs each one through
// normalization, the adult-age rule and the email upsert, and reports a per-record
// outcome log with summary counts.
package integration

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/userhub-io/userhub/internal/users"
)

const (
	// FetchSize is how many candidates one run requests from the upstream source.
	FetchSize = 150

	DefaultMinAge     = 0
	DefaultMaxRecords = 50
	MaxRecordsLimit   = FetchSize

	MsgInvalidMinAge     = "idade deve ser um inteiro maior ou igual a 0"
	MsgInvalidMaxRecords = "maxRegistros deve ser um inteiro positivo"
	MsgMaxRecordsTooHigh = "maxRegistros não pode ultrapassar 150"

	msgInvalidParams = "Parametros invalidos"
)

var (
	minAgeKeys     = []string{"idade", "idadeMin", "age"}
	maxRecordsKeys = []string{"maxRegistros", "max", "limit"}
)

// Params are the validated inputs of one integration run.
type Params struct {
	IdadeMin     int `json:"idadeMin"`
	MaxRegistros int `json:"maxRegistros"`
}

// ParseParams reads the minimum age (idade, idadeMin or age) and the record cap
// (maxRegistros, max or limit) from a query string. Both problems are reported
// together in a *users.ValidationError.
func ParseParams(query url.Values) (Params, error) {
	var errs []string

	params := Params{IdadeMin: DefaultMinAge, MaxRegistros: DefaultMaxRecords}

	if raw, ok := firstValue(query, minAgeKeys); ok {
		minAge, err := strconv.Atoi(raw)
		if err != nil || minAge < 0 {
			errs = append(errs, MsgInvalidMinAge)
		} else {
			params.IdadeMin = minAge
		}
	}

	if raw, ok := firstValue(query, maxRecordsKeys); ok {
		maxRecords, err := strconv.Atoi(raw)

		switch {
		case err != nil || maxRecords <= 0:
			errs = append(errs, MsgInvalidMaxRecords)
		case maxRecords > MaxRecordsLimit:
			errs = append(errs, MsgMaxRecordsTooHigh)
		default:
			params.MaxRegistros = maxRecords
		}
	}

	if len(errs) > 0 {
		return Params{}, users.NewValidationError(msgInvalidParams, errs...)
	}

	return params, nil
}

// Validate applies the same bounds as ParseParams to already-typed params.
func (p Params) Validate() error {
	var errs []string

	if p.IdadeMin < 0 {
		errs = append(errs, MsgInvalidMinAge)
	}

	switch {
	case p.MaxRegistros <= 0:
		errs = append(errs, MsgInvalidMaxRecords)
	case p.MaxRegistros > MaxRecordsLimit:
		errs = append(errs, MsgMaxRecordsTooHigh)
	}

	if len(errs) > 0 {
		return users.NewValidationError(msgInvalidParams, errs...)
	}

	return nil
}

// firstValue returns the first key present in query, in key order. A key given with
// an empty value still counts as present.
func firstValue(query url.Values, keys []string) (string, bool) {
	for _, key := range keys {
		if values, ok := query[key]; ok && len(values) > 0 {
			return strings.TrimSpace(values[0]), true
		}
	}

	return "", false
}
