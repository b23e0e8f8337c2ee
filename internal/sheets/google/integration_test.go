//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"budgy/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteMonthSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:   spreadsheetID,
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ledger := core.MonthLedger{
		Month: core.NewMonth(2000, time.January, time.UTC),
		Lines: []core.FieldTotal{
			{Field: core.Field{Label: "Integration", Kind: core.KindIncome, IsRecurring: true}, Total: core.Money{Cents: 12345}},
		},
		Summary: core.MonthSummary{TotalIncome: core.Money{Cents: 12345}, Savings: core.Money{Cents: 12345}},
	}

	ref, err := client.WriteMonthSummary(ctx, "integration-test", ledger)
	if err != nil {
		t.Fatalf("Failed to write summary: %v", err)
	}
	t.Logf("Wrote summary to %s", ref)
}
