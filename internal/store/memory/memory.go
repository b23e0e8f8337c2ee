// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgy/internal/core"
	"budgy/internal/store"
)

type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	fields  map[string]ownedField
	entries map[string]ownedEntry
}

type ownedField struct {
	owner string
	field core.Field
}

type ownedEntry struct {
	owner string
	entry core.Entry
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:     time.Now,
		fields:  make(map[string]ownedField),
		entries: make(map[string]ownedEntry),
	}
}

// WithClock overrides the time source used for CreatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ListFields(_ context.Context, owner string) ([]core.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Field, 0)
	for _, of := range s.fields {
		if of.owner == owner {
			out = append(out, cloneField(of.field))
		}
	}
	core.SortFields(out)
	return out, nil
}

func (s *Store) GetField(_ context.Context, owner, id string) (core.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	of, ok := s.fields[id]
	if !ok || of.owner != owner {
		return core.Field{}, core.ErrFieldNotFound
	}
	return cloneField(of.field), nil
}

func (s *Store) InsertField(_ context.Context, f core.Field) (core.Field, error) {
	if err := f.Validate(); err != nil {
		return core.Field{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = uuid.NewString()
	f.CreatedAt = s.now()
	f = cloneField(f)
	s.fields[f.ID] = ownedField{owner: f.Owner, field: f}
	return cloneField(f), nil
}

func (s *Store) SoftDeleteField(_ context.Context, owner, id string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	of, ok := s.fields[id]
	if !ok || of.owner != owner {
		return core.ErrFieldNotFound
	}
	of.field.DeletedAt = &deletedAt
	s.fields[id] = of
	return nil
}

func (s *Store) ListEntries(_ context.Context, q store.EntryQuery) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Entry, 0)
	for _, oe := range s.entries {
		if oe.owner != q.Owner {
			continue
		}
		if q.FieldID != "" && oe.entry.FieldID != q.FieldID {
			continue
		}
		if !q.Window.Contains(oe.entry.CreatedAt) {
			continue
		}
		out = append(out, oe.entry)
	}
	core.SortEntries(out)
	return out, nil
}

func (s *Store) InsertEntry(_ context.Context, owner string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if of, ok := s.fields[e.FieldID]; !ok || of.owner != owner {
		return core.Entry{}, core.ErrFieldNotFound
	}
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries[e.ID] = ownedEntry{owner: owner, entry: e}
	return e, nil
}

func (s *Store) DeleteEntry(_ context.Context, owner, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oe, ok := s.entries[id]
	if !ok || oe.owner != owner {
		return core.Entry{}, core.ErrEntryNotFound
	}
	delete(s.entries, id)
	return oe.entry, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored fields and entries.
func (s *Store) Len() (fields, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fields), len(s.entries)
}

func cloneField(f core.Field) core.Field {
	if f.TargetDate != nil {
		t := *f.TargetDate
		f.TargetDate = &t
	}
	if f.DeletedAt != nil {
		t := *f.DeletedAt
		f.DeletedAt = &t
	}
	return f
}
