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

// Package session validates and segregates the two session kinds the
// platform carries: administrative sessions (role-bearing, store-backed,
// expirable, lockable) and client sessions (identity-only, authoritative
// copy held outside the gateway). Which interpretation applies is decided
// by route classification first, never by sniffing payload fields.
package session

import (
	"encoding/json"
	"errors"

	"github.com/lealta/gateway/internal/rbac"
)

// CookieName is the cookie carrying the administrative session payload.
const CookieName = "session"

// Domain errors, ordered roughly by the validation ladder. Expired and
// locked are distinct temporal failures and must never be conflated with
// "no session".
var (
	ErrNoSession        = errors.New("no session")
	ErrSessionInvalid   = errors.New("session invalid")
	ErrSessionExpired   = errors.New("session expired")
	ErrAccountLocked    = errors.New("account temporarily locked")
	ErrBusinessMismatch = errors.New("session business does not match request business")
)

// Kind tags the session result.
type Kind string

const (
	KindNone   Kind = "none"
	KindAdmin  Kind = "admin"
	KindClient Kind = "client"
)

// AdminSession is a validated administrative identity for one business.
type AdminSession struct {
	UserID       string
	Role         rbac.Role
	BusinessID   string
	BusinessSlug string
	Permissions  []string
}

// HasPermission reports whether the session's role grants permission.
func (s *AdminSession) HasPermission(permission string) bool {
	return rbac.HasPermission(s.Role, permission)
}

// ClientSession is the weaker, role-less identity of an end customer. It
// never carries permissions.
type ClientSession struct {
	Cedula     string
	BusinessID string
}

// Result is the tagged outcome of session validation for a route.
type Result struct {
	Kind   Kind
	Admin  *AdminSession
	Client *ClientSession
}

// Payload is the raw JSON shape of the session cookie. Role and businessId
// are advisory; the store is authoritative for both.
type Payload struct {
	UserID       string `json:"userId"`
	SessionToken string `json:"sessionToken"`
	Role         string `json:"role"`
	BusinessID   string `json:"businessId"`
}

// ParseCookie decodes a raw session cookie value without consulting any
// store. An empty value is ErrNoSession; malformed JSON or a missing
// userId is ErrSessionInvalid. Callers that only need the claimed
// identity (redirect targets, lightweight role gates) use this; anything
// tenant-sensitive goes through the Validator.
func ParseCookie(raw string) (*Payload, error) {
	if raw == "" {
		return nil, ErrNoSession
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrSessionInvalid
	}
	if p.UserID == "" {
		return nil, ErrSessionInvalid
	}
	return &p, nil
}
