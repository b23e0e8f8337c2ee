package core

import "sort"

// MonthlyTotal sums the entries belonging to fieldID. The caller scopes
// entries to a month window; an unknown field totals zero.
func MonthlyTotal(entries []Entry, fieldID string) Money {
	var total Money
	for _, e := range entries {
		if e.FieldID == fieldID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// TotalsByField sums entries per field id.
func TotalsByField(entries []Entry) map[string]Money {
	totals := make(map[string]Money)
	for _, e := range entries {
		totals[e.FieldID] = totals[e.FieldID].Add(e.Amount)
	}
	return totals
}

// Summarize computes income, expenses and savings over the given (already
// visible) fields. Counters do not contribute.
func Summarize(fields []Field, totals map[string]Money) MonthSummary {
	var s MonthSummary
	for _, f := range fields {
		switch f.Kind {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(totals[f.ID])
		case KindExpense:
			s.TotalExpenses = s.TotalExpenses.Add(totals[f.ID])
		}
	}
	s.Savings = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// EntriesInWindow returns entries created inside w, oldest first.
func EntriesInWindow(entries []Entry, w Window) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if w.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by CreatedAt, then ID for ties.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// BuildMonthLedger resolves the visible fields of m and totals the entries
// that fall in its window.
func BuildMonthLedger(m Month, fields []Field, entries []Entry) MonthLedger {
	return BuildMonthLedgerWith(defaultResolver, m, fields, entries)
}

// BuildMonthLedgerWith is BuildMonthLedger with an explicit resolver.
func BuildMonthLedgerWith(r *Resolver, m Month, fields []Field, entries []Entry) MonthLedger {
	visible := r.VisibleFields(fields, m)
	totals := TotalsByField(EntriesInWindow(entries, m.Window()))

	lines := make([]FieldTotal, 0, len(visible))
	for _, f := range visible {
		lines = append(lines, FieldTotal{Field: f, Total: totals[f.ID]})
	}
	return MonthLedger{
		Month:   m,
		Lines:   lines,
		Summary: Summarize(visible, totals),
	}
}
