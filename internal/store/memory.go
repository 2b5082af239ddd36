package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
)

// MemoryStore is an in-process answer store for tests and single-binary
// deployments without Redis.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]map[uuid.UUID]model.Answer
}

// NewMemoryStore creates an empty in-memory answer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]map[uuid.UUID]model.Answer),
	}
}

func (s *MemoryStore) Put(ctx context.Context, sessionID uuid.UUID, a model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers, ok := s.sessions[sessionID]
	if !ok {
		answers = make(map[uuid.UUID]model.Answer)
		s.sessions[sessionID] = answers
	}
	answers[a.QuestionID] = a
	return nil
}

func (s *MemoryStore) GetAll(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]model.Answer, len(s.sessions[sessionID]))
	for qid, a := range s.sessions[sessionID] {
		out[qid] = a
	}
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
