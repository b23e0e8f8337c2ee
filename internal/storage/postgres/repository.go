package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"budgy/internal/core"
	"budgy/internal/store"
)

const (
	listFieldsQuery = `
		SELECT id, owner, label, kind, created_at, is_recurring, target_date, deleted_at
		FROM ledger_fields
		WHERE owner = $1
		ORDER BY created_at, id
	`
	getFieldQuery = `
		SELECT id, owner, label, kind, created_at, is_recurring, target_date, deleted_at
		FROM ledger_fields
		WHERE id = $1 AND owner = $2
	`
	insertFieldQuery = `
		INSERT INTO ledger_fields (id, owner, label, kind, created_at, is_recurring, target_date, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	softDeleteFieldQuery = `
		UPDATE ledger_fields SET deleted_at = $1
		WHERE id = $2 AND owner = $3
	`
	listEntriesQuery = `
		SELECT id, field_id, label, amount_cents, created_at
		FROM ledger_entries
		WHERE owner = $1
		  AND ($2 = '' OR field_id::text = $2)
		  AND created_at BETWEEN $3 AND $4
		ORDER BY created_at, id
	`
	insertEntryQuery = `
		INSERT INTO ledger_entries (id, field_id, owner, label, amount_cents, created_at)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::bigint, $6::timestamptz
		WHERE EXISTS (SELECT 1 FROM ledger_fields WHERE id = $2::uuid AND owner = $3::text)
	`
	deleteEntryQuery = `
		DELETE FROM ledger_entries
		WHERE id = $1 AND owner = $2
		RETURNING id, field_id, label, amount_cents, created_at
	`
)

// Repository implements store.Store on PostgreSQL.
type Repository struct {
	querier Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

var _ store.Store = (*Repository)(nil)

func NewRepository(logger *slog.Logger, db *DB) *Repository {
	return newRepository(logger, db.Pool())
}

func newRepository(logger *slog.Logger, q Querier) *Repository {
	return &Repository{
		querier: q,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{querier: tx, logger: r.logger, now: r.now, newID: r.newID}
}

func (r *Repository) ListFields(ctx context.Context, owner string) ([]core.Field, error) {
	rows, err := r.querier.Query(ctx, listFieldsQuery, owner)
	if err != nil {
		r.logger.Error("Failed to list fields", "owner", owner, "error", err)
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	fields := make([]core.Field, 0)
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fields: %w", err)
	}
	return fields, nil
}

func (r *Repository) GetField(ctx context.Context, owner, id string) (core.Field, error) {
	f, err := scanField(r.querier.QueryRow(ctx, getFieldQuery, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Field{}, core.ErrFieldNotFound
		}
		return core.Field{}, fmt.Errorf("failed to get field: %w", err)
	}
	return f, nil
}

func (r *Repository) InsertField(ctx context.Context, f core.Field) (core.Field, error) {
	if err := f.Validate(); err != nil {
		return core.Field{}, err
	}
	f.ID = r.newID()
	f.CreatedAt = r.now().UTC()

	_, err := r.querier.Exec(ctx, insertFieldQuery,
		f.ID,
		f.Owner,
		f.Label,
		string(f.Kind),
		f.CreatedAt,
		f.IsRecurring,
		f.TargetDate,
		f.DeletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create field", "error", err)
		return core.Field{}, fmt.Errorf("failed to create field: %w", err)
	}
	return f, nil
}

func (r *Repository) SoftDeleteField(ctx context.Context, owner, id string, deletedAt time.Time) error {
	tag, err := r.querier.Exec(ctx, softDeleteFieldQuery, deletedAt, id, owner)
	if err != nil {
		r.logger.Error("Failed to soft delete field", "field_id", id, "error", err)
		return fmt.Errorf("failed to soft delete field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrFieldNotFound
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, q store.EntryQuery) ([]core.Entry, error) {
	rows, err := r.querier.Query(ctx, listEntriesQuery, q.Owner, q.FieldID, q.Window.Start, q.Window.End)
	if err != nil {
		r.logger.Error("Failed to list entries", "owner", q.Owner, "error", err)
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]core.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

func (r *Repository) InsertEntry(ctx context.Context, owner string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	e.ID = r.newID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	tag, err := r.querier.Exec(ctx, insertEntryQuery,
		e.ID,
		e.FieldID,
		owner,
		e.Label,
		e.Amount.Cents,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create entry", "field_id", e.FieldID, "error", err)
		return core.Entry{}, fmt.Errorf("failed to create entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Entry{}, core.ErrFieldNotFound
	}
	return e, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, owner, id string) (core.Entry, error) {
	e, err := scanEntry(r.querier.QueryRow(ctx, deleteEntryQuery, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Entry{}, core.ErrEntryNotFound
		}
		r.logger.Error("Failed to delete entry", "entry_id", id, "error", err)
		return core.Entry{}, fmt.Errorf("failed to delete entry: %w", err)
	}
	return e, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	_, err := r.querier.Exec(ctx, "SELECT 1")
	return err
}

func scanField(row pgx.Row) (core.Field, error) {
	var (
		f    core.Field
		kind string
	)
	err := row.Scan(
		&f.ID,
		&f.Owner,
		&f.Label,
		&kind,
		&f.CreatedAt,
		&f.IsRecurring,
		&f.TargetDate,
		&f.DeletedAt,
	)
	f.Kind = core.FieldKind(kind)
	return f, err
}

func scanEntry(row pgx.Row) (core.Entry, error) {
	var e core.Entry
	err := row.Scan(
		&e.ID,
		&e.FieldID,
		&e.Label,
		&e.Amount.Cents,
		&e.CreatedAt,
	)
	return e, err
}
