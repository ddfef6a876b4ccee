package attendance

import (
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day normalizes t to the midnight of its calendar day as observed in loc.
// The result is expressed in UTC so that equal calendar days compare equal
// regardless of where the timestamp came from.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayRange returns [midnight, next midnight) for the calendar day of t.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	from := Day(t, loc)
	return from, from.AddDate(0, 0, 1)
}

// FormatDay renders a normalized day as YYYY-MM-DD.
func FormatDay(day time.Time) string { return day.UTC().Format(dayLayout) }

// ParseDay accepts YYYY-MM-DD or an RFC3339 timestamp and returns the normalized day.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	const op = "attendance.ParseDay"
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, Errorf(KindInvalidInput, op, "date is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(dayLayout, s, loc); err == nil {
		return Day(t, loc), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, Errorf(KindInvalidInput, op, "malformed date %q", s)
	}
	return Day(t, loc), nil
}
