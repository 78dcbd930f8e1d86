package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/models"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == constants.DefaultTimezone {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// Today returns the current DateKey as seen from loc.
func Today(loc *time.Location) models.DateKey {
	if loc == nil {
		loc = time.Local
	}
	return models.DateKeyOf(time.Now().In(loc))
}

// ParseDate parses YYYY-MM-DD, also accepting "today" relative to loc.
func ParseDate(s string, loc *time.Location) (models.DateKey, error) {
	if s == "today" {
		return Today(loc), nil
	}
	return models.ParseDateKey(s)
}

// ParsePeriod parses YYYY-MM, also accepting "current" relative to loc.
func ParsePeriod(s string, loc *time.Location) (models.PeriodKey, error) {
	if s == "" || s == "current" {
		return Today(loc).Period(), nil
	}
	return models.ParsePeriodKey(s)
}

// PeriodBounds returns the first and last day of the month.
func PeriodBounds(p models.PeriodKey) (models.DateKey, models.DateKey) {
	first := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return models.DateKeyOf(first), models.DateKeyOf(last)
}

// ShiftByDays moves date by delta calendar days, crossing month and year boundaries.
func ShiftByDays(date models.DateKey, delta int) models.DateKey {
	// UTC keeps the arithmetic free of DST gaps
	return models.DateKeyOf(date.Time(time.UTC).AddDate(0, 0, delta))
}

// DaysSpan counts the days in [start, end] without materializing them.
// It returns 0 when start is after end.
func DaysSpan(start, end models.DateKey) int {
	if start.After(end) {
		return 0
	}
	// Unix seconds, since time.Duration saturates past ~292 years
	return int((end.Time(time.UTC).Unix()-start.Time(time.UTC).Unix())/86400) + 1
}

// DaysBetween returns every DateKey in [start, end] in ascending order.
func DaysBetween(start, end models.DateKey) []models.DateKey {
	var days []models.DateKey
	for d := start; !d.After(end); d = ShiftByDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// DaysInPeriod returns every DateKey of the month in ascending order.
func DaysInPeriod(p models.PeriodKey) []models.DateKey {
	return DaysBetween(PeriodBounds(p))
}

// BucketOf classifies a predicted mood: <=2 low, (2,4) medium, >=4 high.
func BucketOf(mood float64) models.MoodBucket {
	switch {
	case mood <= constants.LowMoodCeiling:
		return models.BucketLow
	case mood < constants.HighMoodFloor:
		return models.BucketMedium
	default:
		return models.BucketHigh
	}
}
