package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day ("2006-01-02") with no time-of-day or zone.
type Date string

// DateOf returns the calendar day of t in loc (t's own zone when loc is nil).
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return Date(t.Format(DateLayout))
}

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(s), nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Time returns midnight UTC of the day. UTC keeps day arithmetic exact.
func (d Date) Time() (time.Time, error) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", d, err)
	}
	return t, nil
}

// AddDays returns the day n days after d (before when n is negative).
func (d Date) AddDays(n int) (Date, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return Date(t.AddDate(0, 0, n).Format(DateLayout)), nil
}

// String implements fmt.Stringer.
func (d Date) String() string { return string(d) }

// DaysBetween returns the number of calendar days from a to b.
// Positive when b is after a.
func DaysBetween(a, b Date) (int, error) {
	ta, err := a.Time()
	if err != nil {
		return 0, err
	}
	tb, err := b.Time()
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
