package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"budgy/internal/core"
	"budgy/internal/services"
)

var errMissingToken = errors.New("missing bearer token")

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

type moneyJSON struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

func newMoneyJSON(m core.Money, kind core.FieldKind) moneyJSON {
	return moneyJSON{Cents: m.Cents, Display: m.FormatFor(kind)}
}

type fieldJSON struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Kind        string     `json:"kind"`
	Recurring   bool       `json:"recurring"`
	TargetMonth string     `json:"target_month,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func newFieldJSON(f core.Field, loc *time.Location) fieldJSON {
	out := fieldJSON{
		ID:        f.ID,
		Label:     f.Label,
		Kind:      f.Kind.String(),
		Recurring: f.IsRecurring,
		CreatedAt: f.CreatedAt,
		Deleted:   f.IsDeleted(),
		DeletedAt: f.DeletedAt,
	}
	if f.TargetDate != nil {
		out.TargetMonth = core.MonthOf(f.TargetDate.In(loc)).String()
	}
	return out
}

type entryJSON struct {
	ID        string    `json:"id"`
	FieldID   string    `json:"field_id"`
	Label     string    `json:"label"`
	Amount    moneyJSON `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// entryKind picks the display kind for an entry of fieldID. Unknown fields
// fall back to expense formatting.
func entryKind(sess *services.LedgerSession, fieldID string) core.FieldKind {
	if kind, ok := sess.FieldKind(fieldID); ok {
		return kind
	}
	return core.KindExpense
}

func newEntryJSON(e core.Entry, kind core.FieldKind) entryJSON {
	return entryJSON{
		ID:        e.ID,
		FieldID:   e.FieldID,
		Label:     e.Label,
		Amount:    newMoneyJSON(e.Amount, kind),
		CreatedAt: e.CreatedAt,
	}
}

type lineJSON struct {
	Field fieldJSON `json:"field"`
	Total moneyJSON `json:"total"`
}

type summaryJSON struct {
	TotalIncome   moneyJSON `json:"total_income"`
	TotalExpenses moneyJSON `json:"total_expenses"`
	Savings       moneyJSON `json:"savings"`
}

type ledgerJSON struct {
	State     string       `json:"state"`
	Owner     string       `json:"owner"`
	Month     string       `json:"month,omitempty"`
	PrevMonth string       `json:"prev_month,omitempty"`
	NextMonth string       `json:"next_month,omitempty"`
	Lines     []lineJSON   `json:"lines"`
	Summary   *summaryJSON `json:"summary,omitempty"`
}

func newLedgerJSON(v services.LedgerView) ledgerJSON {
	out := ledgerJSON{
		State: v.State.String(),
		Owner: v.Owner,
		Lines: []lineJSON{},
	}
	if v.Month.IsZero() {
		return out
	}
	out.Month = v.Month.String()
	out.PrevMonth = v.Month.Prev().String()
	out.NextMonth = v.Month.Next().String()
	if v.State != services.StateReady {
		return out
	}

	loc := v.Month.Location()
	for _, line := range v.Ledger.Lines {
		out.Lines = append(out.Lines, lineJSON{
			Field: newFieldJSON(line.Field, loc),
			Total: newMoneyJSON(line.Total, line.Field.Kind),
		})
	}
	s := v.Ledger.Summary
	out.Summary = &summaryJSON{
		TotalIncome:   newMoneyJSON(s.TotalIncome, core.KindIncome),
		TotalExpenses: newMoneyJSON(s.TotalExpenses, core.KindExpense),
		Savings:       newMoneyJSON(s.Savings, core.KindIncome),
	}
	return out
}

type detailJSON struct {
	Field   fieldJSON   `json:"field"`
	Month   string      `json:"month"`
	Entries []entryJSON `json:"entries"`
	Total   moneyJSON   `json:"total"`
}

func newDetailJSON(d services.FieldDetail) detailJSON {
	out := detailJSON{
		Field:   newFieldJSON(d.Field, d.Month.Location()),
		Month:   d.Month.String(),
		Entries: make([]entryJSON, 0, len(d.Entries)),
		Total:   newMoneyJSON(d.Total, d.Field.Kind),
	}
	for _, e := range d.Entries {
		out.Entries = append(out.Entries, newEntryJSON(e, d.Field.Kind))
	}
	return out
}
