package journal

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// NewMemoryRepository builds an in-memory journal for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{events: make(map[string][]Event)}
}

func (r *memoryRepository) Append(_ context.Context, event Event) error {
	if event.SessionID == "" {
		return errors.New("session id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.SessionID] = append(r.events[event.SessionID], event)
	return nil
}

func (r *memoryRepository) List(_ context.Context, sessionID string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := r.events[sessionID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}
