// Package session owns the per-visitor state of the storefront: one cart and
// one notice queue per browser session, keyed by an opaque cookie.
//
// Sessions live in memory only and are registered lazily, on the first
// request that changes state. An idle session is evicted by the sweeper,
// which is the server-side equivalent of the visitor reloading the page.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/devops-storefront/internal/cart"
	"github.com/xenking/devops-storefront/internal/notify"
)

// DefaultCookieName is the cookie carrying the session ID.
const DefaultCookieName = "storefront_session"

// Session is the state owned by one visitor.
type Session struct {
	ID      string
	Cart    *cart.Cart
	Notices *notify.Queue

	// lastSeen is a unix-nano timestamp updated on every lookup.
	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Config controls cookie naming and expiry.
type Config struct {
	// CookieName defaults to DefaultCookieName.
	CookieName string
	// IdleTTL is how long an untouched session is kept. Zero keeps
	// sessions until process exit.
	IdleTTL time.Duration
	// NoticeTTL is passed to every session's notice queue.
	NoticeTTL time.Duration
	// Secure marks the cookie Secure (HTTPS only).
	Secure bool
}

// Store is an in-memory session registry safe for concurrent use.
type Store struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an empty Store.
func NewStore(cfg Config) *Store {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &Store{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// CookieName returns the name of the session cookie.
func (s *Store) CookieName() string {
	return s.cfg.CookieName
}

// New creates and registers a session with an empty cart.
func (s *Store) New() *Session {
	sess := s.transient()
	s.add(sess)
	return sess
}

// transient creates a session without registering it.
func (s *Store) transient() *Session {
	sess := &Session{
		ID:      uuid.New().String(),
		Cart:    cart.New(),
		Notices: notify.NewQueue(s.cfg.NoticeTTL),
	}
	sess.touch(s.now())
	return sess
}

func (s *Store) add(sess *Session) {
	sess.touch(s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

// Get returns the session with the given ID and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return nil, false
	}
	sess.touch(s.now())
	return sess, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the configured TTL and returns
// how many were removed.
func (s *Store) Sweep(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.IdleTTL).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper launches a background goroutine that calls Sweep every half
// IdleTTL. It stops when ctx is cancelled and is a no-op without IdleTTL.
func (s *Store) StartSweeper(ctx context.Context) {
	if s.cfg.IdleTTL <= 0 {
		return
	}
	interval := max(s.cfg.IdleTTL/2, time.Second)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}

type sessionKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// FromContext returns the session stored by the middleware, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok
}
