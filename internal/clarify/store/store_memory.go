package store

import (
	"context"
	"sync"
	"time"

	"leadgate/internal/clarify/models"
	"leadgate/pkg/platform/sentinel"
)

// MemoryStore keeps sessions in a map. It favors clarity over performance
// and is the default when no Redis is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

// NewMemory constructs an empty in-memory session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Create stores a new session. Fails with sentinel.ErrConflict if the id is
// already taken.
func (s *MemoryStore) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a copy of the session so callers never alias store state.
func (s *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.ExpiredAt(s.now()) {
		return nil, sentinel.ErrExpired
	}
	return sess.Clone(), nil
}

// Update persists sess only if the stored turn index still equals
// expectedTurn.
func (s *MemoryStore) Update(_ context.Context, sess *models.Session, expectedTurn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sess.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.ExpiredAt(s.now()) {
		return sentinel.ErrExpired
	}
	if current.TurnIndex != expectedTurn {
		return sentinel.ErrConflict
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Touch resets the inactivity window of an active session.
func (s *MemoryStore) Touch(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sess.ExpiredAt(s.now()) {
		return sentinel.ErrExpired
	}
	sess.ExpiresAt = expiresAt
	return nil
}

// Sweep drops sessions whose inactivity window lapsed before now and returns
// how many were removed. Run periodically; Redis handles this via TTL.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.ExpiredAt(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
