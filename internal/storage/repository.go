package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"budgy/internal/core"
	"budgy/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite ledger schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListFields implements store.FieldStore
func (r *SQLiteRepository) ListFields(ctx context.Context, owner string) ([]core.Field, error) {
	rows, err := r.queries.ListFieldsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	fields := make([]core.Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, row.toCore())
	}
	return fields, nil
}

// GetField implements store.FieldStore
func (r *SQLiteRepository) GetField(ctx context.Context, owner, id string) (core.Field, error) {
	row, err := r.queries.GetField(ctx, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Field{}, core.ErrFieldNotFound
	}
	if err != nil {
		return core.Field{}, fmt.Errorf("get field %s: %w", id, err)
	}
	return row.toCore(), nil
}

// InsertField implements store.FieldStore
func (r *SQLiteRepository) InsertField(ctx context.Context, f core.Field) (core.Field, error) {
	if err := f.Validate(); err != nil {
		return core.Field{}, err
	}
	f.ID = uuid.NewString()
	f.CreatedAt = r.now().UTC()

	if err := r.queries.CreateField(ctx, fieldRow(f)); err != nil {
		return core.Field{}, fmt.Errorf("create field: %w", err)
	}

	slog.InfoContext(ctx, "Field saved to SQLite",
		"id", f.ID,
		"owner", f.Owner,
		"kind", f.Kind,
		"recurring", f.IsRecurring)

	return f, nil
}

// SoftDeleteField implements store.FieldStore
func (r *SQLiteRepository) SoftDeleteField(ctx context.Context, owner, id string, deletedAt time.Time) error {
	n, err := r.queries.SoftDeleteField(ctx, deletedAt.UnixNano(), id, owner)
	if err != nil {
		return fmt.Errorf("soft delete field %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrFieldNotFound
	}
	slog.InfoContext(ctx, "Field soft-deleted", "id", id, "owner", owner)
	return nil
}

// ListEntries implements store.EntryStore
func (r *SQLiteRepository) ListEntries(ctx context.Context, q store.EntryQuery) ([]core.Entry, error) {
	rows, err := r.queries.ListEntries(ctx, ListEntriesParams{
		Owner:   q.Owner,
		FieldID: q.FieldID,
		From:    q.Window.Start.UnixNano(),
		To:      q.Window.End.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toCore())
	}
	return entries, nil
}

// InsertEntry implements store.EntryStore
func (r *SQLiteRepository) InsertEntry(ctx context.Context, owner string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	n, err := r.queries.CreateEntry(ctx, Entry{
		ID:          e.ID,
		FieldID:     e.FieldID,
		Owner:       owner,
		Label:       e.Label,
		AmountCents: e.Amount.Cents,
		CreatedAt:   e.CreatedAt.UnixNano(),
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	if n == 0 {
		return core.Entry{}, core.ErrFieldNotFound
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"field_id", e.FieldID,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

// DeleteEntry implements store.EntryStore
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, owner, id string) (core.Entry, error) {
	row, err := r.queries.DeleteEntry(ctx, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrEntryNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("delete entry %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Entry deleted", "id", id, "field_id", row.FieldID)
	return row.toCore(), nil
}

func fieldRow(f core.Field) Field {
	return Field{
		ID:          f.ID,
		Owner:       f.Owner,
		Label:       f.Label,
		Kind:        string(f.Kind),
		CreatedAt:   f.CreatedAt.UnixNano(),
		IsRecurring: f.IsRecurring,
		TargetDate:  nullTime(f.TargetDate),
		DeletedAt:   nullTime(f.DeletedAt),
	}
}

func (f Field) toCore() core.Field {
	return core.Field{
		ID:          f.ID,
		Owner:       f.Owner,
		Label:       f.Label,
		Kind:        core.FieldKind(f.Kind),
		CreatedAt:   fromNanos(f.CreatedAt),
		IsRecurring: f.IsRecurring,
		TargetDate:  timePtr(f.TargetDate),
		DeletedAt:   timePtr(f.DeletedAt),
	}
}

func (e Entry) toCore() core.Entry {
	return core.Entry{
		ID:        e.ID,
		FieldID:   e.FieldID,
		Label:     e.Label,
		Amount:    core.Money{Cents: e.AmountCents},
		CreatedAt: fromNanos(e.CreatedAt),
	}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
