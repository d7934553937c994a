package progress

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	status  Status
	expires time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return Status{}, ErrNotFound
	}
	if s.now().After(e.expires) {
		delete(s.entries, sessionID)
		return Status{}, ErrNotFound
	}
	return e.status, nil
}

func (s *MemoryStore) Set(_ context.Context, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = now
	}
	s.entries[st.SessionID] = entry{status: st, expires: now.Add(s.ttl)}
	s.sweep(now)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
}
