package memory

import (
	"context"
	"sync"

	"budgy/internal/core"
	"budgy/internal/sheets"
)

// Writer keeps the latest summary per owner and month in memory. It stands
// in for the spreadsheet when none is configured.
type Writer struct {
	mu      sync.RWMutex
	tabs    map[string][][]any
	ledgers map[string]core.MonthLedger
	writes  int
}

var _ sheets.SummaryWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{
		tabs:    make(map[string][][]any),
		ledgers: make(map[string]core.MonthLedger),
	}
}

func (w *Writer) WriteMonthSummary(_ context.Context, owner string, ledger core.MonthLedger) (string, error) {
	title := sheets.TabTitle(owner, ledger.Month)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tabs[title] = sheets.SummaryRows(owner, ledger)
	w.ledgers[title] = ledger
	w.writes++
	return "mem:" + title, nil
}

// Rows returns the rows last written for owner and month.
func (w *Writer) Rows(owner string, m core.Month) ([][]any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rows, ok := w.tabs[sheets.TabTitle(owner, m)]
	return rows, ok
}

// Ledger returns the ledger last written for owner and month.
func (w *Writer) Ledger(owner string, m core.Month) (core.MonthLedger, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	l, ok := w.ledgers[sheets.TabTitle(owner, m)]
	return l, ok
}

// Writes counts every WriteMonthSummary call, including overwrites.
func (w *Writer) Writes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.writes
}
