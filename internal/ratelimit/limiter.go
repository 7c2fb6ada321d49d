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

// Package ratelimit implements the per-route request ceilings applied ahead
// of all other gateway logic.
//
// Counters live in a CounterStore (Redis in production, in-memory in tests
// and single-instance deployments). A store failure allows the request:
// product availability wins over rate-limit strictness, and the failure is
// logged rather than swallowed. With no store configured the limiter is
// disabled entirely and every request passes.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lealta/gateway/internal/observability/logger"
)

// Category groups routes that share a ceiling.
type Category string

const (
	CategoryAuth   Category = "auth"
	CategoryAPI    Category = "api"
	CategoryPublic Category = "public"
)

// Config holds the per-category ceilings and the shared window length.
type Config struct {
	AuthLimit   int
	APILimit    int
	PublicLimit int
	Window      time.Duration
}

// DefaultConfig returns the production ceilings.
func DefaultConfig() Config {
	return Config{
		AuthLimit:   10,
		APILimit:    60,
		PublicLimit: 120,
		Window:      time.Minute,
	}
}

// Result is the outcome of a limiter check.
type Result struct {
	Allowed           bool
	RetryAfterSeconds int
}

// CounterStore tracks request counts per key within a fixed window. Incr
// creates the counter with count 1 and a reset time of now+window on first
// use or after the window lapses, and increments it otherwise.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Limiter applies category ceilings to (client, path) pairs.
type Limiter struct {
	store  CounterStore
	limits map[Category]int
	window time.Duration
}

// New creates a limiter backed by store. A nil store disables limiting.
func New(store CounterStore, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		store: store,
		limits: map[Category]int{
			CategoryAuth:   cfg.AuthLimit,
			CategoryAPI:    cfg.APILimit,
			CategoryPublic: cfg.PublicLimit,
		},
		window: cfg.Window,
	}
}

// Check records one request for (clientID, path) and reports whether it is
// within the category ceiling. Store errors fail open.
func (l *Limiter) Check(ctx context.Context, clientID, path string, category Category) Result {
	if l.store == nil {
		return Result{Allowed: true}
	}

	limit, ok := l.limits[category]
	if !ok || limit <= 0 {
		return Result{Allowed: true}
	}

	key := fmt.Sprintf("ratelimit:%s:%s:%s", category, clientID, path)
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		slog.WarnContext(ctx, "rate limit store unavailable, failing open",
			logger.Path(path),
			logger.String("category", string(category)),
			logger.Error(err),
		)
		return Result{Allowed: true}
	}

	if count > limit {
		retryAfter := int(time.Until(resetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Result{Allowed: false, RetryAfterSeconds: retryAfter}
	}
	return Result{Allowed: true}
}

// Categorize maps a request path to its rate-limit category. Auth flows get
// the tightest ceiling.
func Categorize(path string) Category {
	switch {
	case strings.HasPrefix(path, "/api/auth/"), strings.HasPrefix(path, "/login"), strings.HasPrefix(path, "/signup"):
		return CategoryAuth
	case strings.HasPrefix(path, "/api/"):
		return CategoryAPI
	default:
		return CategoryPublic
	}
}
