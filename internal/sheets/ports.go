package sheets

import (
	"context"

	"budgy/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter publishes a computed month ledger for one owner,
	// replacing whatever was written for that owner and month before.
	SummaryWriter interface {
		WriteMonthSummary(ctx context.Context, owner string, ledger core.MonthLedger) (ref string, err error)
	}
)
