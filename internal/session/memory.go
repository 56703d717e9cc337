package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process session store with lazy TTL expiry.
// Expired entries are dropped when touched; a Get that finds nothing is a
// fresh session, so no background reaper is required for correctness.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	blob    []byte
	expires time.Time
}

// NewMemoryStore creates a MemoryStore with the given session TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Context, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return NewContext(), nil
	}
	if s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return NewContext(), nil
	}
	return Decode(entry.blob)
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, sc *Context) error {
	blob, err := sc.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[sessionID] = memoryEntry{blob: blob, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired entries. Callers may run it periodically to bound
// memory; skipping it only delays reclamation.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
