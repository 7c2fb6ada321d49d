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

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore implements ratelimit.CounterStore on top of Redis. Counters
// share a fixed window per key: the first increment sets the expiry, later
// increments within the window reuse it.
type CounterStore struct {
	client *redis.Client
}

// NewCounterStore creates a Redis-backed rate limit counter store.
func NewCounterStore(client *redis.Client) *CounterStore {
	return &CounterStore{client: client}
}

// Incr increments the counter for key and reports the count and when the
// current window resets.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment counter: %w", err)
	}

	count := int(incr.Val())
	remaining := ttl.Val()

	// A fresh key (or one that lost its expiry) starts a new window.
	if count == 1 || remaining < 0 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to set counter expiry: %w", err)
		}
		remaining = window
	}

	return count, time.Now().Add(remaining), nil
}
