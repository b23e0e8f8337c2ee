package services

import (
	"context"
	"errors"
	"io"
	"time"

	"budgy/internal/amqp"
	"budgy/internal/core"
	"budgy/internal/log"
	"budgy/internal/store"
)

// EventPublisher sends ledger change events. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerService is a store.Store that publishes an event after every
// successful write. The write is the source of truth: a failed publish is
// logged and never fails the call.
type LedgerService struct {
	store.Store
	publisher EventPublisher
	logger    *log.Logger
	loc       *time.Location
}

var _ store.Store = (*LedgerService)(nil)

// NewLedgerService wraps st. A nil publisher disables events.
func NewLedgerService(st store.Store, publisher EventPublisher, logger *log.Logger, loc *time.Location) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		Store:     st,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		loc:       loc,
	}
}

func (s *LedgerService) InsertField(ctx context.Context, f core.Field) (core.Field, error) {
	saved, err := s.Store.InsertField(ctx, f)
	if err != nil {
		return core.Field{}, err
	}
	anchor := saved.CreatedAt
	if saved.TargetDate != nil {
		anchor = *saved.TargetDate
	}
	s.publish(ctx, amqp.EventFieldCreated, saved.Owner, anchor, saved.ID, "")
	return saved, nil
}

func (s *LedgerService) SoftDeleteField(ctx context.Context, owner, id string, deletedAt time.Time) error {
	if err := s.Store.SoftDeleteField(ctx, owner, id, deletedAt); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventFieldDeleted, owner, deletedAt, id, "")
	return nil
}

func (s *LedgerService) InsertEntry(ctx context.Context, owner string, e core.Entry) (core.Entry, error) {
	saved, err := s.Store.InsertEntry(ctx, owner, e)
	if err != nil {
		return core.Entry{}, err
	}
	s.publish(ctx, amqp.EventEntryCreated, owner, saved.CreatedAt, saved.FieldID, saved.ID)
	return saved, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, owner, id string) (core.Entry, error) {
	removed, err := s.Store.DeleteEntry(ctx, owner, id)
	if err != nil {
		return core.Entry{}, err
	}
	s.publish(ctx, amqp.EventEntryDeleted, owner, removed.CreatedAt, removed.FieldID, removed.ID)
	return removed, nil
}

func (s *LedgerService) publish(ctx context.Context, eventType amqp.EventType, owner string, at time.Time, fieldID, entryID string) {
	month := core.MonthOf(at.In(s.loc)).String()
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping ledger event",
			log.FieldEventType, eventType,
			log.FieldMonth, month)
		return
	}

	msg := amqp.NewLedgerEventMessage(eventType, owner, month, fieldID, entryID)
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, eventType,
			log.FieldOwner, owner,
			log.FieldMonth, month,
			log.FieldError, err)
	}
}

// Ping forwards to the wrapped store when it supports readiness checks.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.Store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store and the publisher, reporting every failure.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
