package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-07", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Year() != 2024 || m.Month() != time.July {
		t.Fatalf("got %s", m)
	}
	if m.String() != "2024-07" {
		t.Errorf("String() = %q, want %q", m.String(), "2024-07")
	}

	for _, bad := range []string{"", "2024-13", "July", "2024/07"} {
		if _, err := ParseMonth(bad, time.UTC); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseMonth(%q) error = %v, want validation error", bad, err)
		}
	}
}

func TestMonthWindow(t *testing.T) {
	m := NewMonth(2024, time.February, time.UTC)

	if got := m.Start(); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start() = %v", got)
	}
	lastDay := time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)
	if got := m.End(); !got.Equal(lastDay) {
		t.Errorf("End() = %v, want %v", got, lastDay)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start inclusive", m.Start(), true},
		{"end of last day inclusive", lastDay, true},
		{"mid month", time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC), true},
		{"previous month", m.Start().Add(-time.Nanosecond), false},
		{"next month", lastDay.Add(time.Nanosecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
			if got := m.Window().Contains(tt.at); got != tt.want {
				t.Errorf("Window().Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestMonthNavigation(t *testing.T) {
	m := NewMonth(2024, time.January, time.UTC)
	if got := m.Prev().String(); got != "2023-12" {
		t.Errorf("Prev() = %s, want 2023-12", got)
	}
	if got := m.Next().String(); got != "2024-02" {
		t.Errorf("Next() = %s, want 2024-02", got)
	}
	if got := MonthOf(time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)); !got.Equal(m) {
		t.Errorf("MonthOf() = %s, want %s", got, m)
	}
}

func TestMonthSameMonthUsesMonthLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	m := NewMonth(2024, time.July, kolkata)

	// 2024-06-30 20:00 UTC is already July 1 in IST.
	if !m.SameMonth(time.Date(2024, 6, 30, 20, 0, 0, 0, time.UTC)) {
		t.Error("expected late-June UTC instant to fall in IST July")
	}
}
