package users

import "strings"

// Decision is the outcome of resolving a record's identity by email.
type Decision string

const (
	DecisionInsert Decision = "inserted"
	DecisionUpdate Decision = "updated"
)

// NormalizeEmail returns the canonical identity key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve decides how a record is persisted given the row currently stored under its
// email. A row with an id means update; no row means insert.
func Resolve(existing *User) Decision {
	if existing != nil && existing.ID != 0 {
		return DecisionUpdate
	}

	return DecisionInsert
}
