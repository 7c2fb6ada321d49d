package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance cache time deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration, maxSize int, cleanupInterval time.Duration) (*Cache[string], *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := New[string](ttl, maxSize, cleanupInterval)
	c.now = clock.Now
	return c, clock
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10, time.Minute)

	c.Set("acme", "record")
	got, ok := c.Get("acme")
	require.True(t, ok)
	assert.Equal(t, "record", got)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10, time.Hour)

	c.Set("acme", "record")
	clock.Advance(time.Minute + time.Second)

	_, ok := c.Get("acme")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry removed on access")
}

func TestGetWithinTTLIsHit(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10, time.Hour)

	c.Set("acme", "record")
	clock.Advance(59 * time.Second)

	_, ok := c.Get("acme")
	assert.True(t, ok)
}

func TestMaintenanceIsDebounced(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10, 5*time.Minute)

	// First access runs the sweep and arms the debounce timer.
	c.Set("warm", "x")

	c.Set("stale", "y")
	clock.Advance(2 * time.Minute)

	// "stale" is past TTL but the sweep must not run again yet; Len still
	// counts it because Len does not maintain.
	c.Set("fresh", "z")
	assert.Equal(t, 3, c.Len())

	clock.Advance(4 * time.Minute)
	c.Set("trigger", "w")
	// Sweep ran: warm, stale and fresh are all past TTL by now.
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLowestHitCountEntries(t *testing.T) {
	const maxSize = 10
	c, clock := newTestCache(time.Hour, maxSize, time.Minute)

	for i := 0; i < maxSize+1; i++ {
		c.Set(fmt.Sprintf("key-%d", i), "v")
	}

	// Bump everything except key-0 and key-1 so those two are the coldest.
	for i := 2; i < maxSize+1; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
	}

	// Let the debounce window lapse, then trigger maintenance.
	clock.Advance(2 * time.Minute)
	c.Set("extra", "v")

	// floor(10 * 0.2) = 2 coldest entries evicted.
	assert.Equal(t, maxSize, c.Len())
	_, ok := c.Get("key-0")
	assert.False(t, ok)
	_, ok = c.Get("key-1")
	assert.False(t, ok)
	_, ok = c.Get("key-5")
	assert.True(t, ok)
}

func TestHitCountSurvivesConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(time.Hour, 100, time.Hour)
	c.Set("shared", "v")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Get("shared")
				c.Set(fmt.Sprintf("key-%d", i), "v")
			}
		}(i)
	}
	wg.Wait()

	c.mu.Lock()
	hits := c.entries["shared"].hitCount
	c.mu.Unlock()
	assert.Equal(t, 1+50*20, hits, "no lost hit count updates")
}

func TestDeleteRemovesEntry(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10, time.Minute)

	c.Set("acme", "record")
	c.Delete("acme")

	_, ok := c.Get("acme")
	assert.False(t, ok)
}

func TestDefaultsApplied(t *testing.T) {
	c := New[string](time.Minute, 0, 0)
	assert.Equal(t, DefaultMaxSize, c.maxSize)
	assert.Equal(t, DefaultCleanupInterval, c.cleanupInterval)
}
