package core

import (
	"testing"
	"time"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func month(year int, m time.Month) Month {
	return NewMonth(year, m, time.UTC)
}

func TestIsVisibleRecurringDeletedInJune(t *testing.T) {
	f := Field{
		ID:          "a",
		Kind:        KindIncome,
		CreatedAt:   at(2024, time.March, 10),
		IsRecurring: true,
		DeletedAt:   ptr(at(2024, time.June, 1)),
	}

	for m := time.January; m <= time.December; m++ {
		want := m < time.June
		if got := IsVisible(f, month(2024, m)); got != want {
			t.Errorf("IsVisible(%s) = %v, want %v", month(2024, m), got, want)
		}
	}
}

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		month Month
		want  bool
	}{
		{
			name:  "one-off in target month",
			field: Field{TargetDate: ptr(at(2024, time.July, 1))},
			month: month(2024, time.July),
			want:  true,
		},
		{
			name:  "one-off month before target",
			field: Field{TargetDate: ptr(at(2024, time.July, 1))},
			month: month(2024, time.June),
			want:  false,
		},
		{
			name:  "one-off month after target",
			field: Field{TargetDate: ptr(at(2024, time.July, 1))},
			month: month(2024, time.August),
			want:  false,
		},
		{
			name:  "one-off same month other year",
			field: Field{TargetDate: ptr(at(2024, time.July, 1))},
			month: month(2025, time.July),
			want:  false,
		},
		{
			name:  "one-off target mid month",
			field: Field{TargetDate: ptr(at(2024, time.July, 20))},
			month: month(2024, time.July),
			want:  true,
		},
		{
			name:  "legacy visible in the past",
			field: Field{CreatedAt: at(2024, time.May, 1)},
			month: month(2020, time.January),
			want:  true,
		},
		{
			name:  "legacy visible in the future",
			field: Field{CreatedAt: at(2024, time.May, 1)},
			month: month(2030, time.December),
			want:  true,
		},
		{
			name:  "recurring before creation",
			field: Field{IsRecurring: true, CreatedAt: at(2024, time.May, 1)},
			month: month(2023, time.January),
			want:  true,
		},
		{
			name:  "deleted mid month still visible that month",
			field: Field{IsRecurring: true, DeletedAt: ptr(at(2024, time.May, 15))},
			month: month(2024, time.May),
			want:  true,
		},
		{
			name:  "deleted mid month hidden next month",
			field: Field{IsRecurring: true, DeletedAt: ptr(at(2024, time.May, 15))},
			month: month(2024, time.June),
			want:  false,
		},
		{
			name:  "deletion beats target date",
			field: Field{TargetDate: ptr(at(2024, time.July, 1)), DeletedAt: ptr(at(2024, time.July, 1))},
			month: month(2024, time.July),
			want:  false,
		},
		{
			name:  "deleted legacy hidden after boundary",
			field: Field{DeletedAt: ptr(at(2024, time.May, 15))},
			month: month(2024, time.September),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVisible(tt.field, tt.month); got != tt.want {
				t.Errorf("IsVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsVisibleNormalizesMonth(t *testing.T) {
	f := Field{TargetDate: ptr(at(2024, time.July, 1))}
	// A month built from a mid-month instant is still July.
	m := MonthOf(time.Date(2024, 7, 31, 23, 0, 0, 0, time.UTC))
	if !IsVisible(f, m) {
		t.Error("expected field visible in July")
	}
}

type hideAll struct{}

func (hideAll) Decide(Field, Month) (bool, bool) { return false, true }

func TestResolverCustomRules(t *testing.T) {
	r := NewResolver(hideAll{}, LegacyRule{})
	if r.IsVisible(Field{IsRecurring: true}, month(2024, time.July)) {
		t.Error("first deciding rule should win")
	}

	empty := &Resolver{}
	if empty.IsVisible(Field{}, month(2024, time.July)) {
		t.Error("undecided field should be hidden")
	}
}

func TestVisibleFieldsOrder(t *testing.T) {
	fields := []Field{
		{ID: "c", IsRecurring: true, CreatedAt: at(2024, time.March, 3)},
		{ID: "a", IsRecurring: true, CreatedAt: at(2024, time.March, 1)},
		{ID: "gone", IsRecurring: true, CreatedAt: at(2024, time.January, 1), DeletedAt: ptr(at(2024, time.February, 1))},
		{ID: "b", IsRecurring: true, CreatedAt: at(2024, time.March, 1)},
	}
	got := VisibleFields(fields, month(2024, time.March))
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}
