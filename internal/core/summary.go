package core

// MonthSummary is the income/expense/savings figure for one month.
// Savings may be negative.
type MonthSummary struct {
	TotalIncome   Money
	TotalExpenses Money
	Savings       Money
}

// FieldTotal is one visible ledger line with its monthly total.
type FieldTotal struct {
	Field Field
	Total Money
}

// MonthLedger is the computed view of a month.
type MonthLedger struct {
	Month   Month
	Lines   []FieldTotal
	Summary MonthSummary
}
