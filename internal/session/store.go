package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/registry"
)

// Upload is the last spreadsheet a session uploaded.
type Upload struct {
	FileName   string
	Table      model.Table
	UploadedAt time.Time
}

// Session owns one user's technician registry and latest upload. Do runs
// interactions one at a time.
type Session struct {
	ID       uuid.UUID
	Registry *registry.Registry
	Upload   *Upload

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) Do(fn func(s *Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session with a freshly seeded registry.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	sess := &Session{
		ID:       uuid.New(),
		Registry: registry.New(),
		lastSeen: s.now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns a live session and refreshes its expiry.
func (s *Store) Get(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	return len(s.sessions)
}

func (s *Store) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
