package sheets

import (
	"testing"
	"time"

	"budgy/internal/core"
)

func TestTabTitle(t *testing.T) {
	m := core.NewMonth(2024, time.March, time.UTC)
	tests := []struct {
		owner string
		want  string
	}{
		{"alice", "alice 2024-03"},
		{"  bob ", "bob 2024-03"},
		{"o'neil!x", "o_neil_x 2024-03"},
		{"", "2024-03"},
	}
	for _, tt := range tests {
		if got := TabTitle(tt.owner, m); got != tt.want {
			t.Errorf("TabTitle(%q) = %q, want %q", tt.owner, got, tt.want)
		}
	}
}

func TestQuoteTab(t *testing.T) {
	if got := QuoteTab("a 2024-03"); got != "'a 2024-03'" {
		t.Errorf("unexpected quote: %s", got)
	}
	if got := QuoteTab("it's"); got != "'it''s'" {
		t.Errorf("unexpected quote: %s", got)
	}
}

func TestSummaryRows(t *testing.T) {
	march := core.NewMonth(2024, time.March, time.UTC)
	target := march.Start()
	ledger := core.MonthLedger{
		Month: march,
		Lines: []core.FieldTotal{
			{Field: core.Field{Label: "Salary", Kind: core.KindIncome, IsRecurring: true}, Total: core.Money{Cents: 500000}},
			{Field: core.Field{Label: "Trip", Kind: core.KindExpense, TargetDate: &target}, Total: core.Money{Cents: 125050}},
			{Field: core.Field{Label: "Coffee", Kind: core.KindCounter}, Total: core.Money{Cents: 300}},
		},
		Summary: core.MonthSummary{
			TotalIncome:   core.Money{Cents: 500000},
			TotalExpenses: core.Money{Cents: 125050},
			Savings:       core.Money{Cents: 374950},
		},
	}

	rows := SummaryRows("alice", ledger)
	if len(rows) != 3+3+4 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	if rows[1][1] != "2024-03" {
		t.Errorf("month row = %v", rows[1])
	}
	if rows[3][3] != "5000.00" || rows[3][2] != "yes" {
		t.Errorf("salary row = %v", rows[3])
	}
	if rows[4][2] != "2024-03" || rows[4][3] != "1250.50" {
		t.Errorf("trip row = %v", rows[4])
	}
	if rows[5][2] != "legacy" || rows[5][3] != "3" {
		t.Errorf("counter row = %v", rows[5])
	}
	if rows[9][0] != "Savings" || rows[9][1] != "3749.50" {
		t.Errorf("savings row = %v", rows[9])
	}
}
