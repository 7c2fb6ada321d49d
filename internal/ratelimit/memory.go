package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count   int
	resetAt time.Time
}

// MemoryStore is an in-process CounterStore for single-instance deployments
// and tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Incr implements CounterStore. The reset time is fixed when the window
// opens; once it passes, the counter restarts at 1 with a new window.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || now.After(c.resetAt) {
		c = &counter{count: 1, resetAt: now.Add(window)}
		s.counters[key] = c
		return c.count, c.resetAt, nil
	}
	c.count++
	return c.count, c.resetAt, nil
}
