package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count    int64
	expireAt time.Time
}

// MemoryStore is a process-local CounterStore for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: map[string]memoryEntry{}, now: now}
}

func (s *MemoryStore) IncrementIfBelow(_ context.Context, key string, limit int64, expireAt time.Time) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	e, ok := s.entries[key]
	if ok && e.count >= limit {
		return e.count, false, nil
	}
	if !ok {
		if limit <= 0 {
			return 0, false, nil
		}
		e = memoryEntry{expireAt: expireAt}
	}
	e.count++
	s.entries[key] = e
	return e.count, true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expireAt) {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expireAt) {
			delete(s.entries, k)
		}
	}
}
