package worker

import (
	"context"
	"fmt"
	"time"

	"budgy/internal/amqp"
	"budgy/internal/core"
	"budgy/internal/log"
	"budgy/internal/sheets"
	"budgy/internal/store"
)

// LedgerReader is the read side of the store the worker needs.
type LedgerReader interface {
	ListFields(ctx context.Context, owner string) ([]core.Field, error)
	ListEntries(ctx context.Context, q store.EntryQuery) ([]core.Entry, error)
}

// SummaryWorker rebuilds a month ledger from the store whenever a ledger
// event arrives and hands it to the summary writer.
type SummaryWorker struct {
	store    LedgerReader
	writer   sheets.SummaryWriter
	resolver *core.Resolver
	loc      *time.Location
	logger   *log.Logger
}

func NewSummaryWorker(st LedgerReader, writer sheets.SummaryWriter, loc *time.Location, logger *log.Logger) *SummaryWorker {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SummaryWorker{
		store:    st,
		writer:   writer,
		resolver: core.NewResolver(),
		loc:      loc,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *SummaryWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventType, msg.Type,
		log.FieldOwner, msg.Owner,
		log.FieldMonth, msg.Month)

	month, err := core.ParseMonth(msg.Month, w.loc)
	if err != nil {
		return fmt.Errorf("parse event month: %w", err)
	}
	_, err = w.ExportMonth(ctx, msg.Owner, month)
	return err
}

// ExportMonth writes the owner's ledger for month and returns it.
func (w *SummaryWorker) ExportMonth(ctx context.Context, owner string, month core.Month) (core.MonthLedger, error) {
	fields, err := w.store.ListFields(ctx, owner)
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("list fields: %w", err)
	}
	entries, err := w.store.ListEntries(ctx, store.EntryQuery{Owner: owner, Window: month.Window()})
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("list entries: %w", err)
	}

	ledger := core.BuildMonthLedgerWith(w.resolver, month, fields, entries)
	ref, err := w.writer.WriteMonthSummary(ctx, owner, ledger)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to write month summary",
			log.FieldOwner, owner,
			log.FieldMonth, month.String(),
			log.FieldError, err)
		return core.MonthLedger{}, fmt.Errorf("write month summary: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully exported month summary",
		log.FieldOwner, owner,
		log.FieldMonth, month.String(),
		"sheets_ref", ref,
		"lines", len(ledger.Lines),
		"savings_cents", ledger.Summary.Savings.Cents)
	return ledger, nil
}
