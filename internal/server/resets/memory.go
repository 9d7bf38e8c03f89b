package resets

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	userID  int64
	expires time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, token string, userID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	s.entries[token] = entry{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return 0, ErrTokenNotFound
	}
	delete(s.entries, token)

	if !s.now().Before(e.expires) {
		return 0, ErrTokenNotFound
	}
	return e.userID, nil
}

// prune drops expired entries; mu must be held.
func (s *MemoryStore) prune() {
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
