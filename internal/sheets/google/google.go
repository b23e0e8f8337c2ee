package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"budgy/internal/core"
	ports "budgy/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set the
// GOOGLE_APPLICATION_CREDENTIALS file is used.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu        sync.Mutex
	knownTabs map[string]bool
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client authenticated as a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		knownTabs:     make(map[string]bool),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteMonthSummary replaces the owner's month tab with the ledger rows,
// creating the tab on first use.
func (c *Client) WriteMonthSummary(ctx context.Context, owner string, ledger core.MonthLedger) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if ledger.Month.IsZero() {
		return "", fmt.Errorf("write summary: %w", core.ErrInvalidMonth)
	}

	title := ports.TabTitle(owner, ledger.Month)
	if err := c.ensureTab(ctx, title); err != nil {
		return "", err
	}

	quoted := ports.QuoteTab(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		c.forgetTabs()
		return "", fmt.Errorf("failed to clear sheet %s: %w", title, err)
	}

	rows := ports.SummaryRows(owner, ledger)
	rng := fmt.Sprintf("%s!A1:D%d", quoted, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", title, err)
	}
	return rng, nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.knownTabs[title] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet tabs: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.knownTabs[sh.Properties.Title] = true
		}
	}
	if c.knownTabs[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Created spreadsheet tab", "title", title)
	c.knownTabs[title] = true
	return nil
}

// forgetTabs drops the tab cache so the next write re-reads the spreadsheet.
// A failed clear usually means the tab was removed by hand.
func (c *Client) forgetTabs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knownTabs = make(map[string]bool)
}
