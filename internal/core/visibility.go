package core

import "sort"

// VisibilityRule decides whether a field shows in a month. A rule that does
// not apply returns decided=false and the next rule in the chain is asked.
type VisibilityRule interface {
	Decide(f Field, m Month) (visible, decided bool)
}

// DeletedRule hides a field in every month starting at or after its
// tombstone. A field deleted mid-May still shows for May.
type DeletedRule struct{}

func (DeletedRule) Decide(f Field, m Month) (bool, bool) {
	if f.DeletedAt != nil && !f.DeletedAt.After(m.Start()) {
		return false, true
	}
	return false, false
}

// RecurringRule shows recurring fields in every month, past or future.
type RecurringRule struct{}

func (RecurringRule) Decide(f Field, _ Month) (bool, bool) {
	if f.IsRecurring {
		return true, true
	}
	return false, false
}

// TargetDateRule shows one-off fields only in their anchor month.
type TargetDateRule struct{}

func (TargetDateRule) Decide(f Field, m Month) (bool, bool) {
	if f.TargetDate == nil {
		return false, false
	}
	return m.SameMonth(*f.TargetDate), true
}

// LegacyRule treats fields with no recurrence data as recurring.
type LegacyRule struct{}

func (LegacyRule) Decide(Field, Month) (bool, bool) {
	return true, true
}

// DefaultVisibilityRules is the evaluation order used by IsVisible.
var DefaultVisibilityRules = []VisibilityRule{
	DeletedRule{},
	RecurringRule{},
	TargetDateRule{},
	LegacyRule{},
}

// Resolver evaluates an ordered rule chain; the first deciding rule wins.
type Resolver struct {
	rules []VisibilityRule
}

// NewResolver builds a resolver over rules. With no rules it uses
// DefaultVisibilityRules.
func NewResolver(rules ...VisibilityRule) *Resolver {
	if len(rules) == 0 {
		rules = DefaultVisibilityRules
	}
	return &Resolver{rules: rules}
}

// IsVisible normalizes m to its first-of-month anchor and runs the chain.
// A field no rule decides on is hidden.
func (r *Resolver) IsVisible(f Field, m Month) bool {
	m = MonthOf(m.Start())
	for _, rule := range r.rules {
		if visible, decided := rule.Decide(f, m); decided {
			return visible
		}
	}
	return false
}

// VisibleFields returns the fields shown in m, ordered by creation time.
func (r *Resolver) VisibleFields(fields []Field, m Month) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if r.IsVisible(f, m) {
			out = append(out, f)
		}
	}
	SortFields(out)
	return out
}

var defaultResolver = NewResolver()

// IsVisible applies the default rule chain.
func IsVisible(f Field, m Month) bool {
	return defaultResolver.IsVisible(f, m)
}

// VisibleFields applies the default rule chain to a field set.
func VisibleFields(fields []Field, m Month) []Field {
	return defaultResolver.VisibleFields(fields, m)
}

// SortFields orders fields by CreatedAt, then ID for ties.
func SortFields(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		if !fields[i].CreatedAt.Equal(fields[j].CreatedAt) {
			return fields[i].CreatedAt.Before(fields[j].CreatedAt)
		}
		return fields[i].ID < fields[j].ID
	})
}
