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

package business

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lealta/gateway/internal/cache"
	"github.com/lealta/gateway/internal/observability/logger"
)

// identifierPattern validates the shape of a path-derived tenant identifier
// (subdomain or slug form).
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// reservedSegments are first path segments that can never be a tenant:
// public pages, API namespaces, framework internals and static assets.
var reservedSegments = map[string]struct{}{
	"login":         {},
	"signup":        {},
	"api":           {},
	"dashboard":     {},
	"admin":         {},
	"staff":         {},
	"superadmin":    {},
	"cliente":       {},
	"_next":         {},
	"favicon.ico":   {},
	"manifest.json": {},
	"sw.js":         {},
	"icons":         {},
	"images":        {},
	"uploads":       {},
	"static":        {},
	"assets":        {},
	"health":        {},
}

// Resolver turns request paths into tenant contexts, consulting the caches
// before the store. A store hit populates both the identifier-keyed and the
// id-keyed cache with the same record; downstream code looks up businesses
// by either form interchangeably.
type Resolver struct {
	repo         Repository
	byIdentifier *cache.Cache[*Business]
	byID         *cache.Cache[*Business]
}

// NewResolver creates a resolver over repo and the two shared caches.
func NewResolver(repo Repository, byIdentifier, byID *cache.Cache[*Business]) *Resolver {
	return &Resolver{
		repo:         repo,
		byIdentifier: byIdentifier,
		byID:         byID,
	}
}

// ExtractIdentifier returns the candidate tenant identifier from path, or ""
// when the path has no tenant segment (empty path, reserved segment, or a
// segment that fails shape validation).
func ExtractIdentifier(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return ""
	}
	first := strings.ToLower(segments[0])
	if _, reserved := reservedSegments[first]; reserved {
		return ""
	}
	if !identifierPattern.MatchString(first) {
		return ""
	}
	return first
}

// Resolve resolves the tenant context for path. It returns (nil, nil) when
// the path carries no tenant segment, and ErrBusinessNotFound when it does
// but no active business matches.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Context, error) {
	identifier := ExtractIdentifier(path)
	if identifier == "" {
		return nil, nil
	}

	biz, ok := r.byIdentifier.Get(identifier)
	if !ok {
		var err error
		biz, err = r.repo.FindByIdentifier(ctx, identifier)
		if err != nil {
			if errors.Is(err, ErrBusinessNotFound) {
				return nil, ErrBusinessNotFound
			}
			return nil, fmt.Errorf("resolve business %q: %w", identifier, err)
		}

		// Cross-populate so a later lookup by raw id also hits.
		r.byIdentifier.Set(identifier, biz)
		r.byID.Set(biz.ID, biz)

		slog.DebugContext(ctx, "business resolved from store",
			logger.String("identifier", identifier),
			logger.String("business_id", biz.ID),
		)
	}

	return &Context{
		BusinessID:    biz.ID,
		Subdomain:     biz.Subdomain,
		RemainingPath: remainingPath(path),
		Business:      biz,
	}, nil
}

// ByID looks up a business by its raw id, cache first.
func (r *Resolver) ByID(ctx context.Context, id string) (*Business, error) {
	if biz, ok := r.byID.Get(id); ok {
		return biz, nil
	}
	biz, err := r.repo.FindByIdentifier(ctx, id)
	if err != nil {
		return nil, err
	}
	r.byID.Set(biz.ID, biz)
	r.byIdentifier.Set(id, biz)
	return biz, nil
}

// remainingPath strips the leading tenant segment. "/acme/admin/users"
// becomes "/admin/users"; a bare "/acme" becomes "/".
func remainingPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	idx := strings.Index(trimmed, "/")
	if idx < 0 {
		return "/"
	}
	return trimmed[idx:]
}
