package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/moodlit/internal/constants"
	apperrors "github.com/julianstephens/moodlit/internal/errors"
)

// DateKey identifies a calendar day with no time component.
// Two keys are equal iff their (year, month, day) triples are equal, so
// DateKey is usable as a map key. The string form is YYYY-MM-DD.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// PeriodKey identifies one calendar month, the unit of batch fetching.
type PeriodKey struct {
	Year  int
	Month time.Month
}

// ParseDateKey parses a YYYY-MM-DD string with valid calendar fields.
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(constants.DateFormat) {
		return DateKey{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", apperrors.ErrInvalidDateFormat, s)
	}
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return DateKey{}, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidDateFormat, s, err)
	}
	return DateKeyOf(t), nil
}

// MustDateKey is ParseDateKey for literals known to be valid.
func MustDateKey(s string) DateKey {
	d, err := ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateKeyOf returns the calendar day of t in t's own location.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

func (d DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero DateKey.
func (d DateKey) IsZero() bool {
	return d == DateKey{}
}

// Time returns midnight of d in loc.
func (d DateKey) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Period returns the month d belongs to.
func (d DateKey) Period() PeriodKey {
	return PeriodKey{Year: d.Year, Month: d.Month}
}

// Compare returns -1, 0 or +1 ordering d before, equal to, or after o.
func (d DateKey) Compare(o DateKey) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// Before reports whether d is strictly before o.
func (d DateKey) Before(o DateKey) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly after o.
func (d DateKey) After(o DateKey) bool { return d.Compare(o) > 0 }

func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(b []byte) error {
	parsed, err := ParseDateKey(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParsePeriodKey parses a YYYY-MM string.
func ParsePeriodKey(s string) (PeriodKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(constants.PeriodFormat) {
		return PeriodKey{}, fmt.Errorf("%w: %q (expected YYYY-MM)", apperrors.ErrInvalidDateFormat, s)
	}
	t, err := time.Parse(constants.PeriodFormat, s)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidDateFormat, s, err)
	}
	return PeriodKey{Year: t.Year(), Month: t.Month()}, nil
}

func (p PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Contains reports whether d falls inside the month p.
func (p PeriodKey) Contains(d DateKey) bool {
	return d.Year == p.Year && d.Month == p.Month
}

// AddMonths returns the period n months after p (n may be negative).
func (p PeriodKey) AddMonths(n int) PeriodKey {
	t := time.Date(p.Year, p.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return PeriodKey{Year: t.Year(), Month: t.Month()}
}

func (p PeriodKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PeriodKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriodKey(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
