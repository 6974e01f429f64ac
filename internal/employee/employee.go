package employee

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the only accepted birth date format.
const DateLayout = "2006-01-02"

// ErrDateFormat matches every *DateFormatError via errors.Is.
var ErrDateFormat = errors.New("invalid date format")

// DateFormatError reports a birth date that is not a valid YYYY-MM-DD date.
type DateFormatError struct {
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("birth date %q: expected YYYY-MM-DD", e.Value)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

func (e *DateFormatError) Is(target error) bool { return target == ErrDateFormat }

// Employee is one roster entry. Age is always derived, never stored.
type Employee struct {
	FullName  string
	BirthDate time.Time
	Gender    string
}

// New builds an Employee, rejecting birth dates that do not parse strictly.
func New(fullName, birthDate, gender string) (Employee, error) {
	bd, err := ParseBirthDate(birthDate)
	if err != nil {
		return Employee{}, err
	}
	return Employee{FullName: fullName, BirthDate: bd, Gender: gender}, nil
}

// ParseBirthDate parses s as a calendar date in UTC.
func ParseBirthDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &DateFormatError{Value: s, Err: err}
	}
	return t, nil
}

// BirthDateString formats the birth date back to YYYY-MM-DD.
func (e Employee) BirthDateString() string {
	return e.BirthDate.Format(DateLayout)
}

// AgeAt returns the age in whole years on the given day.
func (e Employee) AgeAt(asOf time.Time) int {
	return Age(e.BirthDate, asOf)
}

// Age counts completed years between birth and asOf, dropping one when the
// birthday has not been reached yet in asOf's year.
func Age(birth, asOf time.Time) int {
	age := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		age--
	}
	return age
}
