package thread

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps transcripts in memory. Used by tests and by runs that
// have no persistence configured.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]Message)}
}

// Create opens a new thread and returns its ID.
func (s *MemoryStore) Create(_ context.Context) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.threads[id] = nil
	s.mu.Unlock()
	return id, nil
}

// Append adds a message to a thread's transcript.
func (s *MemoryStore) Append(_ context.Context, threadID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return ErrThreadNotFound
	}
	s.threads[threadID] = append(s.threads[threadID], Message{
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Messages returns a thread's transcript in insertion order.
func (s *MemoryStore) Messages(_ context.Context, threadID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.threads[threadID]
	if !ok {
		return nil, ErrThreadNotFound
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
