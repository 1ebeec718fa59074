package session

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/appforge/core"
)

// InMemoryStore is a volatile Store implementation keeping sessions in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Stored and returned values are detached
// copies to prevent external mutation of internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    map[string][]core.StreamEvent
	snapshots map[string]core.SessionSnapshot
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[string][]core.StreamEvent),
		snapshots: make(map[string]core.SessionSnapshot),
	}
}

// AppendEvent implements Store.
func (s *InMemoryStore) AppendEvent(_ context.Context, sessionID string, ev core.StreamEvent) (int, error) {
	ev, err := Detach(ev)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sessionID] = append(s.events[sessionID], ev)
	return len(s.events[sessionID]), nil
}

// Events implements Store.
func (s *InMemoryStore) Events(_ context.Context, sessionID string) ([]core.StreamEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events[sessionID]), nil
}

// SaveSnapshot implements Store.
func (s *InMemoryStore) SaveSnapshot(_ context.Context, snap core.SessionSnapshot) error {
	snap, err := Detach(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ID] = snap
	return nil
}

// Snapshot implements Store.
func (s *InMemoryStore) Snapshot(_ context.Context, sessionID string) (core.SessionSnapshot, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[sessionID]
	s.mu.RUnlock()

	if !ok {
		return core.SessionSnapshot{}, ErrNotFound
	}
	return Detach(snap)
}

// Sessions implements Store.
func (s *InMemoryStore) Sessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots)+len(s.events))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	for id := range s.events {
		if _, ok := s.snapshots[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
