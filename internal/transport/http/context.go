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

package http

import (
	"context"

	"github.com/lealta/gateway/internal/business"
	"github.com/lealta/gateway/internal/session"
)

type contextKey string

const (
	businessContextKey contextKey = "business_context"
	adminSessionKey    contextKey = "admin_session"
)

// WithBusinessContext attaches the resolved tenant context.
func WithBusinessContext(ctx context.Context, bctx *business.Context) context.Context {
	return context.WithValue(ctx, businessContextKey, bctx)
}

// GetBusinessContext retrieves the resolved tenant context, or nil.
func GetBusinessContext(ctx context.Context) *business.Context {
	if val, ok := ctx.Value(businessContextKey).(*business.Context); ok {
		return val
	}
	return nil
}

// WithAdminSession attaches a validated administrative session.
func WithAdminSession(ctx context.Context, sess *session.AdminSession) context.Context {
	return context.WithValue(ctx, adminSessionKey, sess)
}

// GetAdminSession retrieves the validated administrative session, or nil.
func GetAdminSession(ctx context.Context) *session.AdminSession {
	if val, ok := ctx.Value(adminSessionKey).(*session.AdminSession); ok {
		return val
	}
	return nil
}
