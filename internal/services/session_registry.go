package services

import (
	"strings"
	"time"

	"budgy/internal/cache"
	"budgy/internal/core"
	"budgy/internal/log"
	"budgy/internal/store"
)

// RegistryConfig bounds the number and lifetime of live sessions.
type RegistryConfig struct {
	MaxSessions int
	TTL         time.Duration
	Now         func() time.Time
}

// SessionRegistry hands out one LedgerSession per owner. Idle sessions
// expire after TTL; the least recently used one is dropped when the
// registry is full. Dropped sessions are signed out.
type SessionRegistry struct {
	sessions *cache.LRUCache[*LedgerSession]
	store    store.Store
	opts     []SessionOption
	logger   *log.Logger
}

func NewSessionRegistry(st store.Store, cfg RegistryConfig, logger *log.Logger, opts ...SessionOption) *SessionRegistry {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	r := &SessionRegistry{
		store:  st,
		opts:   append([]SessionOption{WithLogger(logger)}, opts...),
		logger: logger.WithComponent(log.ComponentSession),
	}
	r.sessions = cache.NewLRUCache[*LedgerSession](cfg.MaxSessions, cfg.TTL).
		OnEvict(func(owner string, s *LedgerSession) {
			r.logger.Debug("Session dropped", log.FieldOwner, owner)
			s.SignOut()
		})
	if cfg.Now != nil {
		r.sessions.WithClock(cfg.Now)
	}
	return r
}

// Session returns the owner's live session, creating and signing in a new
// one on first use.
func (r *SessionRegistry) Session(owner string) (*LedgerSession, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, core.ErrMissingOwner
	}
	var signInErr error
	s := r.sessions.GetOrCreate(owner, func() *LedgerSession {
		s := NewLedgerSession(r.store, r.opts...)
		signInErr = s.SignIn(owner)
		return s
	})
	if signInErr != nil {
		r.sessions.Delete(owner)
		return nil, signInErr
	}
	return s, nil
}

// End signs the owner's session out and forgets it.
func (r *SessionRegistry) End(owner string) {
	r.sessions.Delete(strings.TrimSpace(owner))
}

// CleanExpired signs out idle sessions. It lets a cache.Manager drive
// the registry.
func (r *SessionRegistry) CleanExpired() int {
	return r.sessions.CleanExpired()
}

// Len is the number of live sessions.
func (r *SessionRegistry) Len() int {
	return r.sessions.Size()
}
