// Copyright 2026 The Lealta Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the in-process TTL cache used for tenant lookups.
//
// Maintenance is opportunistic: every access may trigger a sweep, but sweeps
// are debounced to at most one per cleanup interval. There is no background
// goroutine. Eviction under size pressure removes the 20% least-hit entries,
// a frequency-weighted approximation of LRU. Downstream behavior depends on
// which entries survive, so the fraction and the floor rounding are part of
// the contract.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultMaxSize         = 1000
	DefaultCleanupInterval = 5 * time.Minute
)

type entry[T any] struct {
	data      T
	timestamp time.Time
	hitCount  int
}

// Cache is a TTL key/value cache safe for concurrent use.
type Cache[T any] struct {
	mu              sync.Mutex
	entries         map[string]*entry[T]
	ttl             time.Duration
	maxSize         int
	cleanupInterval time.Duration
	lastCleanup     time.Time

	now func() time.Time // overridable in tests
}

// New creates a cache with the given TTL. MaxSize and cleanup interval fall
// back to the package defaults when zero.
func New[T any](ttl time.Duration, maxSize int, cleanupInterval time.Duration) *Cache[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Cache[T]{
		entries:         make(map[string]*entry[T]),
		ttl:             ttl,
		maxSize:         maxSize,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
}

// Get returns the cached value for key and whether it was present and fresh.
// A hit increments the entry's hit count. A stale entry is removed and
// reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maintain()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().Sub(e.timestamp) >= c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	e.hitCount++
	return e.data, true
}

// Set stores value under key with a fresh timestamp and a hit count of one.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maintain()
	c.entries[key] = &entry[T]{
		data:      value,
		timestamp: c.now(),
		hitCount:  1,
	}
}

// Delete removes key if present.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the current number of entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// maintain expires stale entries and, under size pressure, evicts the
// floor(maxSize*0.2) entries with the lowest hit counts. Debounced to one
// run per cleanup interval. Caller must hold c.mu.
func (c *Cache[T]) maintain() {
	now := c.now()
	if now.Sub(c.lastCleanup) < c.cleanupInterval {
		return
	}

	for key, e := range c.entries {
		if now.Sub(e.timestamp) >= c.ttl {
			delete(c.entries, key)
		}
	}

	if len(c.entries) > c.maxSize {
		type candidate struct {
			key      string
			hitCount int
		}
		candidates := make([]candidate, 0, len(c.entries))
		for key, e := range c.entries {
			candidates = append(candidates, candidate{key: key, hitCount: e.hitCount})
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].hitCount < candidates[j].hitCount
		})
		evict := int(float64(c.maxSize) * 0.2)
		if evict > len(candidates) {
			evict = len(candidates)
		}
		for _, victim := range candidates[:evict] {
			delete(c.entries, victim.key)
		}
	}

	c.lastCleanup = now
}
