// Package users holds the user record domain: the canonical record shape, the field
// normalizer, the adult-age rule, email identity and the Store contract persistence
// backends implement.
package users

import "context"

// DateLayout is the textual birth date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Gender is the closed set of stored gender values.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type (
	// User is a persisted row of the usuario table.
	// Nullable columns are pointers so they encode as JSON null.
	User struct {
		ID             int64   `json:"id"`
		Email          string  `json:"email"`
		Nome           string  `json:"nome"`
		Sobrenome      string  `json:"sobrenome"`
		DataNascimento *string `json:"data_nascimento"` //nolint: tagliatelle
		Celular        *string `json:"celular"`
		Genero         *Gender `json:"genero"`
	}

	// Record is a normalized user ready for persistence. Email is already trimmed and
	// lower-cased; DataNascimento is YYYY-MM-DD.
	Record struct {
		Email          string
		Nome           string
		Sobrenome      string
		DataNascimento string
		Celular        *string
		Genero         *Gender
	}

	// UpsertResult reports the row id touched by Store.Upsert and whether the row was
	// created or an existing row with the same email was updated.
	UpsertResult struct {
		ID       int64
		Decision Decision
	}

	// Store is the persistence gateway for the usuario table.
	//
	// FindByID and FindByEmail return (nil, nil) when no row matches. Upsert is atomic:
	// the insert-or-update decision and the write happen in one store operation.
	// FindByEmail and UpdateByEmail stay on the gateway for callers that need a plain
	// lookup or an update without insert; the service paths all go through Upsert.
	Store interface {
		FindByID(ctx context.Context, id int64) (*User, error)
		FindAll(ctx context.Context) ([]User, error)
		FindByEmail(ctx context.Context, email string) (*User, error)
		InsertOne(ctx context.Context, record Record) (int64, error)
		InsertMany(ctx context.Context, records []Record) (int64, error)
		UpdateByEmail(ctx context.Context, email string, record Record) (int64, error)
		Upsert(ctx context.Context, record Record) (UpsertResult, error)
		ListByBirthDateRange(ctx context.Context, start, end string) ([]User, error)
		HealthCheck(ctx context.Context) error
	}
)

// ToUser builds the User a record becomes once persisted under id.
func (r Record) ToUser(id int64) User {
	birth := r.DataNascimento

	return User{
		ID:             id,
		Email:          r.Email,
		Nome:           r.Nome,
		Sobrenome:      r.Sobrenome,
		DataNascimento: &birth,
		Celular:        r.Celular,
		Genero:         r.Genero,
	}
}
