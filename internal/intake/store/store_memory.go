package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"leadgate/internal/intake/models"
	"leadgate/pkg/platform/sentinel"
)

// MemoryStore keeps inquiries in a map. Default when no database is
// configured; favors clarity over performance.
type MemoryStore struct {
	mu        sync.RWMutex
	inquiries map[uuid.UUID]models.Inquiry
}

// NewMemory constructs an empty in-memory inquiry store.
func NewMemory() *MemoryStore {
	return &MemoryStore{inquiries: make(map[uuid.UUID]models.Inquiry)}
}

var _ Store = (*MemoryStore)(nil)

// Save inserts a new inquiry; an existing id is a conflict.
func (s *MemoryStore) Save(_ context.Context, inq *models.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inquiries[inq.ID]; ok {
		return sentinel.ErrConflict
	}
	s.inquiries[inq.ID] = clone(inq)
	return nil
}

// Get returns a copy of the inquiry.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Inquiry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inq, ok := s.inquiries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&inq)
	return &out, nil
}

// UpdateVerdict rewrites an existing inquiry in place.
func (s *MemoryStore) UpdateVerdict(_ context.Context, inq *models.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inquiries[inq.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.inquiries[inq.ID] = clone(inq)
	return nil
}

func clone(inq *models.Inquiry) models.Inquiry {
	out := *inq
	out.Record = inq.Record.Clone()
	out.FailReasons = append([]string(nil), inq.FailReasons...)
	return out
}
