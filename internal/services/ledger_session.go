package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"budgy/internal/core"
	"budgy/internal/log"
	"budgy/internal/store"
)

// SessionState is the lifecycle of a LedgerSession.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoading
	StateReady
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNotReady is returned by mutations issued before a month is loaded.
	ErrNotReady = errors.New("ledger session not ready")
	// ErrStaleLoad is returned by SelectMonth when a newer selection or a
	// sign-out superseded the load; its results were discarded.
	ErrStaleLoad = errors.New("ledger load superseded")
)

// LedgerSession caches one owner's fields and the entries of the selected
// month. Every mutation writes to the store first and merges into the cache
// only on success. Store calls run without mu held; a generation counter
// discards results that arrive after a newer month selection or a sign-out.
// Mutations are serialized by op so a check on the cache and the write it
// guards happen as one step.
type LedgerSession struct {
	store    store.Store
	logger   *log.Logger
	resolver *core.Resolver
	now      func() time.Time
	loc      *time.Location

	op sync.Mutex

	mu          sync.Mutex
	state       SessionState
	owner       string
	generation  uint64
	month       core.Month
	fields      []core.Field
	entries     []core.Entry
	loaded      bool
	loadedMonth core.Month
}

type SessionOption func(*LedgerSession)

func WithClock(now func() time.Time) SessionOption {
	return func(s *LedgerSession) { s.now = now }
}

// WithLocation sets the time zone months are computed in.
func WithLocation(loc *time.Location) SessionOption {
	return func(s *LedgerSession) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(logger *log.Logger) SessionOption {
	return func(s *LedgerSession) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentSession)
		}
	}
}

func WithResolver(r *core.Resolver) SessionOption {
	return func(s *LedgerSession) {
		if r != nil {
			s.resolver = r
		}
	}
}

func NewLedgerSession(st store.Store, opts ...SessionOption) *LedgerSession {
	s := &LedgerSession{
		store:    st,
		logger:   log.Discard(),
		resolver: core.NewResolver(),
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn binds the session to owner. Switching owners drops cached state.
func (s *LedgerSession) SignIn(owner string) error {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return core.ErrMissingOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == owner {
		return nil
	}
	s.resetLocked()
	s.owner = owner
	s.logger.Info("Session signed in", log.FieldOwner, owner)
	return nil
}

// SignOut clears all state, including any load still in flight.
func (s *LedgerSession) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := s.owner
	s.resetLocked()
	s.owner = ""
	s.logger.Info("Session signed out", log.FieldOwner, owner)
}

func (s *LedgerSession) resetLocked() {
	s.generation++
	s.state = StateUninitialized
	s.month = core.Month{}
	s.fields = nil
	s.entries = nil
	s.loaded = false
	s.loadedMonth = core.Month{}
}

// CurrentMonth is the month containing now in the session location.
func (s *LedgerSession) CurrentMonth() core.Month {
	return core.MonthOf(s.now().In(s.loc))
}

// Location is the zone months are computed in.
func (s *LedgerSession) Location() *time.Location {
	return s.loc
}

// SelectMonth loads every field of the owner and the entries of m. The
// latest selection wins: a load that completes after a newer SelectMonth or
// a SignOut is dropped and ErrStaleLoad is returned. On store failure the
// last month that finished loading stays in place, or the session falls back
// to uninitialized when none has.
func (s *LedgerSession) SelectMonth(ctx context.Context, m core.Month) error {
	if m.IsZero() {
		return core.ErrInvalidMonth
	}
	m = core.MonthOf(m.Start())

	s.mu.Lock()
	if s.owner == "" {
		s.mu.Unlock()
		return core.ErrMissingOwner
	}
	s.generation++
	gen := s.generation
	owner := s.owner
	s.state = StateLoading
	s.month = m
	s.mu.Unlock()

	fields, err := s.store.ListFields(ctx, owner)
	var entries []core.Entry
	if err == nil {
		entries, err = s.store.ListEntries(ctx, store.EntryQuery{Owner: owner, Window: m.Window()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.DebugContext(ctx, "Discarding stale month load",
			log.FieldOwner, owner,
			log.FieldMonth, m.String(),
			log.FieldGeneration, gen)
		return ErrStaleLoad
	}
	if err != nil {
		if s.loaded {
			s.state, s.month = StateReady, s.loadedMonth
		} else {
			s.state, s.month = StateUninitialized, core.Month{}
		}
		return storeError("load month", err)
	}

	s.fields = fields
	s.entries = core.EntriesInWindow(entries, m.Window())
	s.state = StateReady
	s.loaded, s.loadedMonth = true, m
	s.logger.InfoContext(ctx, "Month loaded",
		log.FieldOwner, owner,
		log.FieldMonth, m.String(),
		"fields", len(fields),
		"entries", len(s.entries))
	return nil
}

// IncrementCounter appends a +1 entry dated now.
func (s *LedgerSession) IncrementCounter(ctx context.Context, fieldID string) (core.Entry, error) {
	s.op.Lock()
	defer s.op.Unlock()

	snap, err := s.counterSnapshot(fieldID)
	if err != nil {
		return core.Entry{}, err
	}
	return s.insertEntry(ctx, snap, core.Entry{
		FieldID:   fieldID,
		Label:     "increment",
		Amount:    core.CounterStep,
		CreatedAt: s.now(),
	})
}

// DecrementCounter appends a -1 entry dated now unless the field's total for
// the selected month is already zero or below; then nothing is written and
// applied is false.
func (s *LedgerSession) DecrementCounter(ctx context.Context, fieldID string) (entry core.Entry, applied bool, err error) {
	s.op.Lock()
	defer s.op.Unlock()

	snap, err := s.counterSnapshot(fieldID)
	if err != nil {
		return core.Entry{}, false, err
	}
	if snap.total.Cents <= 0 {
		return core.Entry{}, false, nil
	}
	entry, err = s.insertEntry(ctx, snap, core.Entry{
		FieldID:   fieldID,
		Label:     "decrement",
		Amount:    core.CounterStep.Neg(),
		CreatedAt: s.now(),
	})
	if err != nil {
		return core.Entry{}, false, err
	}
	return entry, true, nil
}

// AddEntry records a manual amount. The entry is dated now when now falls in
// the selected month and on the first of the selected month otherwise.
func (s *LedgerSession) AddEntry(ctx context.Context, fieldID, label, amount string) (core.Entry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return core.Entry{}, core.ErrEmptyLabel
	}
	value, err := core.ParseAmount(amount)
	if err != nil {
		return core.Entry{}, err
	}

	s.op.Lock()
	defer s.op.Unlock()
	snap, err := s.snapshot()
	if err != nil {
		return core.Entry{}, err
	}
	if _, err := snap.liveField(fieldID); err != nil {
		return core.Entry{}, err
	}

	createdAt := s.now()
	if !snap.month.Contains(createdAt) {
		createdAt = snap.month.Start()
	}
	return s.insertEntry(ctx, snap, core.Entry{
		FieldID:   fieldID,
		Label:     label,
		Amount:    value,
		CreatedAt: createdAt,
	})
}

// RemoveEntry hard-deletes an entry and drops it from the cache.
func (s *LedgerSession) RemoveEntry(ctx context.Context, entryID string) (core.Entry, error) {
	s.op.Lock()
	defer s.op.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return core.Entry{}, err
	}
	removed, err := s.store.DeleteEntry(ctx, snap.owner, entryID)
	if err != nil {
		return core.Entry{}, storeError("remove entry", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.generation == s.generation {
		for i, e := range s.entries {
			if e.ID == entryID {
				s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
				break
			}
		}
	}
	return removed, nil
}

// FieldInput describes a new field.
type FieldInput struct {
	Label       string
	Kind        core.FieldKind
	IsRecurring bool
	TargetDate  *time.Time
}

// AddField creates a field. A one-off field without a target date is
// anchored to the first of the selected month.
func (s *LedgerSession) AddField(ctx context.Context, in FieldInput) (core.Field, error) {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	if owner == "" {
		return core.Field{}, core.ErrMissingOwner
	}

	f := core.Field{
		Owner:       owner,
		Label:       strings.TrimSpace(in.Label),
		Kind:        in.Kind,
		IsRecurring: in.IsRecurring,
	}
	if err := f.Validate(); err != nil {
		return core.Field{}, err
	}

	s.op.Lock()
	defer s.op.Unlock()
	snap, err := s.snapshot()
	if err != nil {
		return core.Field{}, err
	}
	if !f.IsRecurring {
		anchor := snap.month.Start()
		if in.TargetDate != nil {
			anchor = core.MonthOf(in.TargetDate.In(s.loc)).Start()
		}
		f.TargetDate = &anchor
	}

	saved, err := s.store.InsertField(ctx, f)
	if err != nil {
		return core.Field{}, storeError("add field", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.generation == s.generation {
		s.fields = append(s.fields, saved)
	}
	return saved, nil
}

// DeleteField writes a tombstone dated now. The cached field carries the
// same tombstone, so the visibility rules treat it exactly as a reload
// would: still listed for the rest of the deletion month, gone afterwards.
// Deleting an already deleted field is a no-op.
func (s *LedgerSession) DeleteField(ctx context.Context, fieldID string) error {
	s.op.Lock()
	defer s.op.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	f, err := snap.field(fieldID)
	if err != nil {
		return err
	}
	if f.IsDeleted() {
		return nil
	}

	deletedAt := s.now()
	if err := s.store.SoftDeleteField(ctx, snap.owner, fieldID, deletedAt); err != nil {
		return storeError("delete field", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.generation == s.generation {
		for i := range s.fields {
			if s.fields[i].ID == fieldID {
				s.fields[i].DeletedAt = &deletedAt
				break
			}
		}
	}
	return nil
}

// LedgerView is a point-in-time rendering of the session.
type LedgerView struct {
	State  SessionState
	Owner  string
	Month  core.Month
	Ledger core.MonthLedger
}

// View computes visibility and totals from the cached state.
func (s *LedgerSession) View() LedgerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := LedgerView{State: s.state, Owner: s.owner, Month: s.month}
	if s.state == StateReady {
		v.Ledger = core.BuildMonthLedgerWith(s.resolver, s.month, s.fields, s.entries)
	}
	return v
}

// State reports the lifecycle state and selected month.
func (s *LedgerSession) State() (SessionState, core.Month) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.month
}

// FieldKind reports the kind of a cached field, deleted ones included.
func (s *LedgerSession) FieldKind(fieldID string) (core.FieldKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fields {
		if f.ID == fieldID {
			return f.Kind, true
		}
	}
	return "", false
}

// FieldDetail is one field with its entries for the selected month.
type FieldDetail struct {
	Field   core.Field
	Month   core.Month
	Entries []core.Entry
	Total   core.Money
}

// Detail reads a field and its month entries straight from the store.
// A missing field yields core.ErrFieldNotFound.
func (s *LedgerSession) Detail(ctx context.Context, fieldID string) (FieldDetail, error) {
	snap, err := s.snapshot()
	if err != nil {
		return FieldDetail{}, err
	}
	f, err := s.store.GetField(ctx, snap.owner, fieldID)
	if err != nil {
		return FieldDetail{}, storeError("field detail", err)
	}
	entries, err := s.store.ListEntries(ctx, store.EntryQuery{
		Owner:   snap.owner,
		FieldID: fieldID,
		Window:  snap.month.Window(),
	})
	if err != nil {
		return FieldDetail{}, storeError("field detail", err)
	}
	entries = core.EntriesInWindow(entries, snap.month.Window())
	return FieldDetail{
		Field:   f,
		Month:   snap.month,
		Entries: entries,
		Total:   core.MonthlyTotal(entries, fieldID),
	}, nil
}

// sessionSnapshot is the state a mutation captured before its store call.
type sessionSnapshot struct {
	owner      string
	month      core.Month
	generation uint64
	fields     []core.Field
	total      core.Money
}

func (s *LedgerSession) snapshot() (sessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *LedgerSession) snapshotLocked() (sessionSnapshot, error) {
	if s.state != StateReady {
		return sessionSnapshot{}, ErrNotReady
	}
	return sessionSnapshot{
		owner:      s.owner,
		month:      s.month,
		generation: s.generation,
		fields:     append([]core.Field(nil), s.fields...),
	}, nil
}

// counterSnapshot also captures the counter's total for the selected month.
func (s *LedgerSession) counterSnapshot(fieldID string) (sessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.snapshotLocked()
	if err != nil {
		return snap, err
	}
	f, err := snap.liveField(fieldID)
	if err != nil {
		return snap, err
	}
	if f.Kind != core.KindCounter {
		return snap, core.ErrNotCounter
	}
	snap.total = core.MonthlyTotal(s.entries, fieldID)
	return snap, nil
}

func (snap sessionSnapshot) field(id string) (core.Field, error) {
	for _, f := range snap.fields {
		if f.ID == id {
			return f, nil
		}
	}
	return core.Field{}, core.ErrFieldNotFound
}

func (snap sessionSnapshot) liveField(id string) (core.Field, error) {
	f, err := snap.field(id)
	if err != nil {
		return f, err
	}
	if f.IsDeleted() {
		return f, core.ErrFieldDeleted
	}
	return f, nil
}

func (s *LedgerSession) insertEntry(ctx context.Context, snap sessionSnapshot, e core.Entry) (core.Entry, error) {
	saved, err := s.store.InsertEntry(ctx, snap.owner, e)
	if err != nil {
		return core.Entry{}, storeError("insert entry", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.generation == s.generation && snap.month.Contains(saved.CreatedAt) {
		s.entries = append(s.entries, saved)
	}
	return saved, nil
}

// storeError keeps validation and not-found errors as they are and marks
// everything else as a store failure.
func storeError(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}
