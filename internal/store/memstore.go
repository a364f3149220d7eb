package store

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/google/uuid"
)

// MemorySessionStore keeps sessions and turns in process memory. It backs
// SESSION_STORE=memory and satisfies both store interfaces.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]domain.Session
	turns    map[uuid.UUID][]domain.TurnRecord
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]domain.Session),
		turns:    make(map[uuid.UUID][]domain.TurnRecord),
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if _, exists := s.sessions[sess.ID]; exists {
		return ErrConflict
	}
	now := time.Now()
	sess.CreatedAt, sess.UpdatedAt = now, now
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemorySessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemorySessionStore) Update(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	sess.CreatedAt = existing.CreatedAt
	sess.UpdatedAt = time.Now()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.turns, id)
	return nil
}

func (s *MemorySessionStore) Append(ctx context.Context, t *domain.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[t.SessionID]; !ok {
		return ErrNotFound
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	s.turns[t.SessionID] = append(s.turns[t.SessionID], *t)
	return nil
}

func (s *MemorySessionStore) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultTurnLimit
	}
	all := s.turns[sessionID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.TurnRecord, len(all))
	copy(out, all)
	return out, nil
}
