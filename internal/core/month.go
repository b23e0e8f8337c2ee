package core

import (
	"strings"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month anchored at its first instant in a location.
// The zero value is not a valid month.
type Month struct {
	start time.Time
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	y, m, _ := t.Date()
	return Month{start: time.Date(y, m, 1, 0, 0, 0, 0, t.Location())}
}

// NewMonth builds a month anchor. A nil location means UTC.
func NewMonth(year int, month time.Month, loc *time.Location) Month {
	if loc == nil {
		loc = time.UTC
	}
	return Month{start: time.Date(year, month, 1, 0, 0, 0, 0, loc)}
}

// ParseMonth parses a "YYYY-MM" string in the given location.
func ParseMonth(s string, loc *time.Location) (Month, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(monthLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return MonthOf(t), nil
}

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return m.start
}

// End is the last nanosecond of the month's last day.
func (m Month) End() time.Time {
	return m.start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Contains reports whether t falls in the inclusive [Start, End] window.
func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.start) && !t.After(m.End())
}

// SameMonth reports whether t falls in the same calendar year and month,
// evaluated in the month's location.
func (m Month) SameMonth(t time.Time) bool {
	y, mo, _ := t.In(m.start.Location()).Date()
	return y == m.start.Year() && mo == m.start.Month()
}

// AddMonths moves the anchor by n months (negative for earlier).
func (m Month) AddMonths(n int) Month {
	return Month{start: m.start.AddDate(0, n, 0)}
}

func (m Month) Prev() Month { return m.AddMonths(-1) }
func (m Month) Next() Month { return m.AddMonths(1) }

func (m Month) Equal(o Month) bool {
	return m.start.Equal(o.start)
}

func (m Month) IsZero() bool {
	return m.start.IsZero()
}

func (m Month) Year() int {
	return m.start.Year()
}

func (m Month) Month() time.Month {
	return m.start.Month()
}

func (m Month) Location() *time.Location {
	return m.start.Location()
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return m.start.Format(monthLayout)
}

// Window is the inclusive time range of a month, used for entry queries.
type Window struct {
	Start time.Time
	End   time.Time
}

func (m Month) Window() Window {
	return Window{Start: m.Start(), End: m.End()}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
