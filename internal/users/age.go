package users

import (
	"strings"
	"time"
)

// AdultAge is the highest age still rejected by EnsureAdult. Users must be older.
const AdultAge = 18

const (
	MsgBirthDateRequired = "Data de nascimento é obrigatória para validar idade"
	MsgBirthDateInvalid  = "Data de nascimento inválida"
	MsgNotAdult          = "usuario deve ter mais de 18 anos"

	msgAgeRule = "Idade invalida"
)

// EnsureAdult rejects a birth date that is missing, unparseable, or belongs to someone
// aged AdultAge or younger on now. Exactly 18 is rejected; 19 is accepted.
func EnsureAdult(date string, now time.Time) error {
	date = strings.TrimSpace(date)
	if date == "" {
		return NewValidationError(msgAgeRule, MsgBirthDateRequired)
	}

	birth, err := ParseBirthDate(date)
	if err != nil {
		return NewValidationError(msgAgeRule, MsgBirthDateInvalid)
	}

	if AgeOn(birth, now) <= AdultAge {
		return NewValidationError(msgAgeRule, MsgNotAdult)
	}

	return nil
}

// ParseBirthDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and keeps only the date.
func ParseBirthDate(date string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, date); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// AgeOn returns the whole years between birth and now. A birthday that has not yet
// happened in now's year does not count.
func AgeOn(birth, now time.Time) int {
	age := now.Year() - birth.Year()

	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}

	return age
}
