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

// Package identity holds the read models the gateway needs to validate
// sessions. The auth subsystem owns these records; the gateway never
// writes them.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/lealta/gateway/internal/rbac"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrClientNotFound = errors.New("client not found")
)

// User is a staff/admin account joined with the slice of its business the
// session validator needs.
type User struct {
	ID             string
	Email          string
	Name           string
	Role           rbac.Role
	BusinessID     string
	SessionToken   string
	SessionExpires *time.Time
	LockedUntil    *time.Time
	IsActive       bool

	BusinessSlug      string
	BusinessName      string
	BusinessSubdomain string
	BusinessActive    bool
}

// Client is an end customer of one business, identified by cedula. The
// authoritative client session state lives on the client side; the gateway
// only confirms the record exists.
type Client struct {
	Cedula     string
	BusinessID string
}

// UserRepository finds active users by id and session token.
type UserRepository interface {
	// FindBySession returns the active user with the given id whose current
	// session token equals token, or ErrUserNotFound.
	FindBySession(ctx context.Context, userID, token string) (*User, error)
}

// ClientRepository confirms client records exist for a business.
type ClientRepository interface {
	// FindByCedula returns the client with the given cedula registered to
	// businessID, or ErrClientNotFound.
	FindByCedula(ctx context.Context, cedula, businessID string) (*Client, error)
}
