package integration

import (
	"context"
	"strings"

	"github.com/userhub-io/userhub/internal/users"
)

type (
	// Candidate is one person as the upstream source shapes it.
	Candidate struct {
		Gender string        `json:"gender"`
		Name   CandidateName `json:"name"`
		Email  string        `json:"email"`
		Dob    CandidateDob  `json:"dob"`
		Phone  string        `json:"phone"`
		Cell   string        `json:"cell"`
	}

	// CandidateName is the nested name block of a Candidate.
	CandidateName struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	}

	// CandidateDob carries the birth timestamp and the age reported upstream.
	CandidateDob struct {
		Date string `json:"date"`
		Age  int    `json:"age"`
	}

	// Fetcher retrieves up to count candidates from the upstream source in one call.
	Fetcher interface {
		Fetch(ctx context.Context, count int) ([]Candidate, error)
	}
)

// BirthDate returns the YYYY-MM-DD prefix of the upstream timestamp, or "" when absent.
func (c Candidate) BirthDate() string {
	date := strings.TrimSpace(c.Dob.Date)
	if len(date) >= len(users.DateLayout) {
		return date[:len(users.DateLayout)]
	}

	return date
}

// Mobile prefers the cell number and falls back to the landline.
func (c Candidate) Mobile() string {
	if cell := strings.TrimSpace(c.Cell); cell != "" {
		return cell
	}

	return strings.TrimSpace(c.Phone)
}

// Input maps the candidate onto the normalizer's input. Empty upstream values become
// absent fields.
func (c Candidate) Input() users.Input {
	return users.Input{
		Email:          c.Email,
		Nome:           c.Name.First,
		Sobrenome:      c.Name.Last,
		DataNascimento: optional(c.BirthDate()),
		Celular:        optional(c.Mobile()),
		Genero:         optional(c.Gender),
	}
}

func optional(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	return value
}
