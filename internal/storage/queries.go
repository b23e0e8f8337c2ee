package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Field is a row of the fields table.
type Field struct {
	ID          string
	Owner       string
	Label       string
	Kind        string
	CreatedAt   int64
	IsRecurring bool
	TargetDate  sql.NullInt64
	DeletedAt   sql.NullInt64
}

// Entry is a row of the entries table.
type Entry struct {
	ID          string
	FieldID     string
	Owner       string
	Label       string
	AmountCents int64
	CreatedAt   int64
}

const fieldColumns = `id, owner, label, kind, created_at, is_recurring, target_date, deleted_at`

const listFieldsByOwner = `
SELECT ` + fieldColumns + ` FROM fields
WHERE owner = ?
ORDER BY created_at, id`

func (q *Queries) ListFieldsByOwner(ctx context.Context, owner string) ([]Field, error) {
	rows, err := q.db.QueryContext(ctx, listFieldsByOwner, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Field
	for rows.Next() {
		var i Field
		if err := scanField(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getField = `
SELECT ` + fieldColumns + ` FROM fields
WHERE id = ? AND owner = ?`

func (q *Queries) GetField(ctx context.Context, id, owner string) (Field, error) {
	row := q.db.QueryRowContext(ctx, getField, id, owner)
	var i Field
	err := scanField(row, &i)
	return i, err
}

const createField = `
INSERT INTO fields (` + fieldColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateField(ctx context.Context, arg Field) error {
	_, err := q.db.ExecContext(ctx, createField,
		arg.ID,
		arg.Owner,
		arg.Label,
		arg.Kind,
		arg.CreatedAt,
		arg.IsRecurring,
		arg.TargetDate,
		arg.DeletedAt,
	)
	return err
}

const softDeleteField = `
UPDATE fields SET deleted_at = ?
WHERE id = ? AND owner = ?`

func (q *Queries) SoftDeleteField(ctx context.Context, deletedAt int64, id, owner string) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteField, deletedAt, id, owner)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type ListEntriesParams struct {
	Owner   string
	FieldID string
	From    int64
	To      int64
}

const listEntries = `
SELECT id, field_id, owner, label, amount_cents, created_at FROM entries
WHERE owner = ?
  AND (? = '' OR field_id = ?)
  AND created_at BETWEEN ? AND ?
ORDER BY created_at, id`

func (q *Queries) ListEntries(ctx context.Context, arg ListEntriesParams) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntries,
		arg.Owner,
		arg.FieldID,
		arg.FieldID,
		arg.From,
		arg.To,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entry
	for rows.Next() {
		var i Entry
		if err := rows.Scan(
			&i.ID,
			&i.FieldID,
			&i.Owner,
			&i.Label,
			&i.AmountCents,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The owner check keeps entries from being attached to another user's field.
const createEntry = `
INSERT INTO entries (id, field_id, owner, label, amount_cents, created_at)
SELECT ?, ?, ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM fields WHERE id = ? AND owner = ?)`

func (q *Queries) CreateEntry(ctx context.Context, arg Entry) (int64, error) {
	result, err := q.db.ExecContext(ctx, createEntry,
		arg.ID,
		arg.FieldID,
		arg.Owner,
		arg.Label,
		arg.AmountCents,
		arg.CreatedAt,
		arg.FieldID,
		arg.Owner,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntry = `
DELETE FROM entries
WHERE id = ? AND owner = ?
RETURNING id, field_id, owner, label, amount_cents, created_at`

func (q *Queries) DeleteEntry(ctx context.Context, id, owner string) (Entry, error) {
	row := q.db.QueryRowContext(ctx, deleteEntry, id, owner)
	var i Entry
	err := row.Scan(
		&i.ID,
		&i.FieldID,
		&i.Owner,
		&i.Label,
		&i.AmountCents,
		&i.CreatedAt,
	)
	return i, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanField(s scanner, i *Field) error {
	return s.Scan(
		&i.ID,
		&i.Owner,
		&i.Label,
		&i.Kind,
		&i.CreatedAt,
		&i.IsRecurring,
		&i.TargetDate,
		&i.DeletedAt,
	)
}
