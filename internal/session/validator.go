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

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lealta/gateway/internal/business"
	"github.com/lealta/gateway/internal/identity"
	"github.com/lealta/gateway/internal/rbac"
)

// Validator checks session payloads against the user and client stores.
type Validator struct {
	users   identity.UserRepository
	clients identity.ClientRepository

	now func() time.Time
}

// NewValidator creates a session validator.
func NewValidator(users identity.UserRepository, clients identity.ClientRepository) *Validator {
	return &Validator{
		users:   users,
		clients: clients,
		now:     time.Now,
	}
}

// ValidateAdmin runs the full administrative ladder over a raw session
// cookie value. requiredBusinessID, when non-empty, must equal the stored
// user's business id; a mismatch is ErrBusinessMismatch, never a silent
// pass. An empty rawCookie is ErrNoSession; malformed JSON or missing
// fields are ErrSessionInvalid, not a crash.
func (v *Validator) ValidateAdmin(ctx context.Context, rawCookie, requiredBusinessID string) (*AdminSession, error) {
	if rawCookie == "" {
		return nil, ErrNoSession
	}

	var p Payload
	if err := json.Unmarshal([]byte(rawCookie), &p); err != nil {
		return nil, ErrSessionInvalid
	}
	if p.UserID == "" || p.SessionToken == "" {
		return nil, ErrSessionInvalid
	}

	user, err := v.users.FindBySession(ctx, p.UserID, p.SessionToken)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("look up session user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrSessionInvalid
	}
	if !user.BusinessActive {
		return nil, ErrSessionInvalid
	}
	if user.SessionExpires != nil && user.SessionExpires.Before(v.now()) {
		return nil, ErrSessionExpired
	}
	if user.LockedUntil != nil && user.LockedUntil.After(v.now()) {
		return nil, ErrAccountLocked
	}
	if requiredBusinessID != "" && user.BusinessID != requiredBusinessID {
		return nil, ErrBusinessMismatch
	}

	return &AdminSession{
		UserID:       user.ID,
		Role:         user.Role,
		BusinessID:   user.BusinessID,
		BusinessSlug: user.BusinessSlug,
		Permissions:  rbac.Permissions(user.Role),
	}, nil
}

// ValidateClientData confirms client-asserted identity data against the
// client store. This backs flows that explicitly post cedula data; it is
// not a gate on client route access.
func (v *Validator) ValidateClientData(ctx context.Context, cedula, businessID string) (*ClientSession, error) {
	if cedula == "" || businessID == "" {
		return nil, ErrSessionInvalid
	}

	client, err := v.clients.FindByCedula(ctx, cedula, businessID)
	if err != nil {
		if errors.Is(err, identity.ErrClientNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("look up client: %w", err)
	}

	return &ClientSession{
		Cedula:     client.Cedula,
		BusinessID: client.BusinessID,
	}, nil
}

// ValidateForRoute applies the segregation contract: administrative paths
// demand a matching admin session, client paths demand only an active
// tenant (never a cookie), everything else carries no session.
func (v *Validator) ValidateForRoute(ctx context.Context, rawCookie, path string, bctx *business.Context) (Result, error) {
	switch RouteTypeOf(path) {
	case RouteAdmin:
		admin, err := v.ValidateAdmin(ctx, rawCookie, bctx.BusinessID)
		if err != nil {
			return Result{Kind: KindNone}, err
		}
		return Result{Kind: KindAdmin, Admin: admin}, nil

	case RouteClient:
		// Client identity is the frontend's responsibility. Only the
		// tenant itself gates access here.
		if bctx.Business == nil || !bctx.Business.IsActive {
			return Result{Kind: KindNone}, business.ErrBusinessNotFound
		}
		return Result{Kind: KindClient, Client: &ClientSession{BusinessID: bctx.BusinessID}}, nil

	default:
		return Result{Kind: KindNone}, nil
	}
}
