package sheets

import (
	"strings"

	"budgy/internal/core"
)

// Header is the column row above the ledger lines.
var Header = []any{"Field", "Kind", "Recurring", "Total"}

// TabTitle names the tab holding one owner's month, e.g. "alice 2024-03".
// Characters that break A1 references are replaced.
func TabTitle(owner string, m core.Month) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\'', '!', ':', '[', ']', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(owner))
	if clean == "" {
		return m.String()
	}
	return clean + " " + m.String()
}

// QuoteTab returns the tab title quoted for use in an A1 range.
func QuoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// SummaryRows lays out a month ledger as sheet rows: a two-row preamble,
// the header, one row per visible field, and the summary block. Amounts are
// plain decimals so the sheet parses them as numbers; counters carry their
// count.
func SummaryRows(owner string, ledger core.MonthLedger) [][]any {
	rows := make([][]any, 0, len(ledger.Lines)+8)
	rows = append(rows,
		[]any{"Owner", owner},
		[]any{"Month", ledger.Month.String()},
		Header,
	)
	for _, line := range ledger.Lines {
		rows = append(rows, []any{
			line.Field.Label,
			line.Field.Kind.String(),
			recurringLabel(line.Field),
			cellValue(line.Field.Kind, line.Total),
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total income", ledger.Summary.TotalIncome.Decimal()},
		[]any{"Total expenses", ledger.Summary.TotalExpenses.Decimal()},
		[]any{"Savings", ledger.Summary.Savings.Decimal()},
	)
	return rows
}

func recurringLabel(f core.Field) string {
	switch {
	case f.IsRecurring:
		return "yes"
	case f.TargetDate != nil:
		return core.MonthOf(*f.TargetDate).String()
	default:
		return "legacy"
	}
}

func cellValue(kind core.FieldKind, total core.Money) string {
	if kind == core.KindCounter {
		return total.FormatFor(kind)
	}
	return total.Decimal()
}
