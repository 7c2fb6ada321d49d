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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lealta/gateway/internal/identity"
	"github.com/lealta/gateway/internal/rbac"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindBySession retrieves an active user whose stored session token matches, joined
// with the owning business so callers can check tenant state in one trip.
func (r *UserRepository) FindBySession(ctx context.Context, userID, sessionToken string) (*identity.User, error) {
	var (
		u              identity.User
		role           string
		sessionExpires sql.NullTime
		lockedUntil    sql.NullTime
	)

	err := r.db.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.business_id, u.is_active,
			u.session_token, u.session_expires, u.locked_until,
			b.slug, b.name, b.subdomain, b.is_active
		FROM users u
		JOIN businesses b ON b.id = u.business_id
		WHERE u.id = $1 AND u.session_token = $2 AND u.is_active = TRUE
	`, userID, sessionToken).Scan(
		&u.ID, &u.Email, &u.Name, &role, &u.BusinessID, &u.IsActive,
		&u.SessionToken, &sessionExpires, &lockedUntil,
		&u.BusinessSlug, &u.BusinessName, &u.BusinessSubdomain, &u.BusinessActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user session: %w", err)
	}

	u.Role = rbac.Role(role)
	if sessionExpires.Valid {
		u.SessionExpires = &sessionExpires.Time
	}
	if lockedUntil.Valid {
		u.LockedUntil = &lockedUntil.Time
	}

	return &u, nil
}
