package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// MemoryStore keeps history in process memory. The CLI holds its history
// inside the chat session, so this store backs tests only.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Turn),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.sessions[id] = []Turn{}

	return id, nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[sessionID]
	if !ok {
		return nil, oops.Errorf("session %s not found", sessionID)
	}

	result := make([]Turn, len(turns))
	copy(result, turns)

	return result, nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, sessionID, userMsg, assistantMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.sessions[sessionID]
	if !ok {
		return oops.Errorf("session %s not found", sessionID)
	}

	now := time.Now()
	s.sessions[sessionID] = append(turns,
		Turn{Role: RoleUser, Content: userMsg, Timestamp: now},
		Turn{Role: RoleAssistant, Content: assistantMsg, Timestamp: now},
	)

	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return oops.Errorf("session %s not found", sessionID)
	}

	s.sessions[sessionID] = []Turn{}

	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return oops.Errorf("session %s not found", sessionID)
	}

	delete(s.sessions, sessionID)

	return nil
}
