// Package store defines the persistence ports the ledger depends on.
// Implementations live in store/memory, storage (SQLite) and
// storage/postgres.
package store

import (
	"context"
	"time"

	"budgy/internal/core"
)

type (
	// FieldStore persists field definitions. Listing includes soft-deleted
	// fields; visibility filtering is not the store's concern.
	FieldStore interface {
		ListFields(ctx context.Context, owner string) ([]core.Field, error)
		// GetField returns core.ErrFieldNotFound when id is absent for owner.
		GetField(ctx context.Context, owner, id string) (core.Field, error)
		// InsertField assigns ID and CreatedAt.
		InsertField(ctx context.Context, f core.Field) (core.Field, error)
		SoftDeleteField(ctx context.Context, owner, id string, deletedAt time.Time) error
	}

	// EntryStore persists dated entries.
	EntryStore interface {
		ListEntries(ctx context.Context, q EntryQuery) ([]core.Entry, error)
		// InsertEntry assigns ID. CreatedAt is kept as given.
		InsertEntry(ctx context.Context, owner string, e core.Entry) (core.Entry, error)
		// DeleteEntry hard-deletes and returns the removed entry, or
		// core.ErrEntryNotFound.
		DeleteEntry(ctx context.Context, owner, id string) (core.Entry, error)
	}

	Store interface {
		FieldStore
		EntryStore
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// EntryQuery selects entries of one owner inside a window, optionally
// scoped to a single field.
type EntryQuery struct {
	Owner   string
	FieldID string // empty means all fields
	Window  core.Window
}
