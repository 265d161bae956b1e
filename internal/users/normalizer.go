package users

import (
	"regexp"
	"strings"
)

// Field messages reported by Normalize, in check order.
const (
	MsgInvalidEmail     = "email é obrigatório e deve ser válido"
	MsgMissingNome      = "nome é obrigatório"
	MsgMissingSobrenome = "sobrenome é obrigatório"
	MsgInvalidGenero    = "genero deve ser male, female, m ou f"
	MsgMissingBirthDate = "data_nascimento é obrigatória"
	MsgInvalidBirthDate = "data_nascimento deve estar no formato YYYY-MM-DD"

	msgInvalidPayload = "Dados do usuario invalidos"
)

var (
	emailPattern     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	birthDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Input is an unvalidated user as decoded from a request body or mapped from an
// upstream candidate. Values that are not strings are treated as absent.
type Input struct {
	Email          any `json:"email"`
	Nome           any `json:"nome"`
	Sobrenome      any `json:"sobrenome"`
	DataNascimento any `json:"data_nascimento"` //nolint: tagliatelle
	Celular        any `json:"celular"`
	Genero         any `json:"genero"`
}

// Normalize validates in and returns its canonical Record. Every field is checked;
// when any check fails the record is rejected with a *ValidationError listing all
// messages in the order email, nome, sobrenome, genero, data_nascimento.
func Normalize(in Input) (Record, error) {
	var (
		errs   []string
		record Record
	)

	record.Email = NormalizeEmail(asString(in.Email))
	if record.Email == "" || !emailPattern.MatchString(record.Email) {
		errs = append(errs, MsgInvalidEmail)
	}

	record.Nome = strings.TrimSpace(asString(in.Nome))
	if record.Nome == "" {
		errs = append(errs, MsgMissingNome)
	}

	record.Sobrenome = strings.TrimSpace(asString(in.Sobrenome))
	if record.Sobrenome == "" {
		errs = append(errs, MsgMissingSobrenome)
	}

	if raw, ok := in.Genero.(string); ok && strings.TrimSpace(raw) != "" {
		gender, valid := ParseGender(raw)
		if valid {
			record.Genero = &gender
		} else {
			errs = append(errs, MsgInvalidGenero)
		}
	}

	birth, ok := in.DataNascimento.(string)
	birth = strings.TrimSpace(birth)

	switch {
	case !ok || birth == "":
		errs = append(errs, MsgMissingBirthDate)
	case !birthDatePattern.MatchString(birth):
		errs = append(errs, MsgInvalidBirthDate)
	default:
		record.DataNascimento = birth
	}

	if phone := strings.TrimSpace(asString(in.Celular)); phone != "" {
		record.Celular = &phone
	}

	if len(errs) > 0 {
		return Record{}, NewValidationError(msgInvalidPayload, errs...)
	}

	return record, nil
}

// ParseGender maps male/female/m/f (any case, surrounding spaces ignored) to a Gender.
func ParseGender(raw string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m":
		return GenderMale, true
	case "female", "f":
		return GenderFemale, true
	}

	return "", false
}

func asString(v any) string {
	s, _ := v.(string)

	return s
}
