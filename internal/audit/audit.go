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

// Package audit records security-relevant gateway decisions so that any
// denial or interception can be reconstructed from logs.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeLegacyRouteBlocked      = "legacy_route_blocked"
	TypeSelectionProbeBlocked   = "business_selection_probe_blocked"
	TypeCrossTenantDenied       = "cross_tenant_denied"
	TypeLockedAccountHit        = "locked_account_hit"
	TypeRateLimitRejected       = "rate_limit_rejected"
	TypePermissionDenied        = "permission_denied"
	TypeInvalidBusinessRequest  = "invalid_business_requested"
	TypeSessionValidationFailed = "session_validation_failed"
)

// Event represents one auditable gateway decision.
type Event struct {
	Type       string
	BusinessID string
	ActorID    string
	Path       string
	Reason     string
	Metadata   map[string]any
	Timestamp  time.Time
	IPAddress  string
	Referer    string
}

// Logger defines the interface for audit logging.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger on the process-wide slog logger.
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger.
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event.
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_id", uuid.NewString()),
		slog.String("audit_type", event.Type),
		slog.String("business_id", event.BusinessID),
		slog.String("actor_id", event.ActorID),
		slog.String("path", event.Path),
		slog.String("reason", event.Reason),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Referer != "" {
		attrs = append(attrs, slog.String("referer", event.Referer))
	}

	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "audit_event", attrs...)
}

// isSecret reports whether a metadata key likely holds sensitive material.
func isSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"token", "secret", "password", "cookie", "session"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NopLogger discards events. Used in tests.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
