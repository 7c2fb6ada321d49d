package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func TestAllowsUpToLimit(t *testing.T) {
	limiter := New(NewMemoryStore(), Config{AuthLimit: 3, APILimit: 10, PublicLimit: 20, Window: time.Minute})

	for i := 0; i < 3; i++ {
		res := limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
		assert.True(t, res.Allowed, "request %d within ceiling", i+1)
	}
}

func TestRejectsBeyondLimitWithRetryAfter(t *testing.T) {
	limiter := New(NewMemoryStore(), Config{AuthLimit: 3, APILimit: 10, PublicLimit: 20, Window: time.Minute})

	for i := 0; i < 3; i++ {
		limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	}
	res := limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	require.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfterSeconds, 0)
}

func TestWindowResetsCounter(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	limiter := New(store, Config{AuthLimit: 2, APILimit: 10, PublicLimit: 20, Window: time.Minute})

	limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	res := limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	require.False(t, res.Allowed)

	now = now.Add(time.Minute + time.Second)
	res = limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	assert.True(t, res.Allowed, "counter restarts at 1 after the window")
}

func TestSeparateKeysDoNotInterfere(t *testing.T) {
	limiter := New(NewMemoryStore(), Config{AuthLimit: 1, APILimit: 10, PublicLimit: 20, Window: time.Minute})

	res := limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	require.True(t, res.Allowed)
	res = limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	require.False(t, res.Allowed)

	// Different client, same path.
	res = limiter.Check(context.Background(), "5.6.7.8", "/login", CategoryAuth)
	assert.True(t, res.Allowed)

	// Same client, different path.
	res = limiter.Check(context.Background(), "1.2.3.4", "/signup", CategoryAuth)
	assert.True(t, res.Allowed)
}

func TestDisabledWithoutStore(t *testing.T) {
	limiter := New(nil, DefaultConfig())

	for i := 0; i < 1000; i++ {
		res := limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
		require.True(t, res.Allowed)
	}
}

func TestFailsOpenOnStoreError(t *testing.T) {
	limiter := New(failingStore{}, DefaultConfig())

	res := limiter.Check(context.Background(), "1.2.3.4", "/login", CategoryAuth)
	assert.True(t, res.Allowed)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		path string
		want Category
	}{
		{"/api/auth/signin", CategoryAuth},
		{"/login", CategoryAuth},
		{"/signup", CategoryAuth},
		{"/api/clients", CategoryAPI},
		{"/api/consumos/123", CategoryAPI},
		{"/acme/admin", CategoryPublic},
		{"/", CategoryPublic},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.path), tt.path)
	}
}
