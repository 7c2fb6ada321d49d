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

// Package rbac defines the static role and permission model for
// administrative sessions. Roles carry fixed permission sets; SUPERADMIN
// bypasses every check unconditionally.
package rbac

// Role is an administrative role within one business.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
)

// Valid reports whether r is a known administrative role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// rolePermissions maps each role to its fixed permission set. ADMIN manages
// day-to-day operations but never the business itself; STAFF is limited to a
// read/create subset at the counter.
var rolePermissions = map[Role][]string{
	RoleSuperAdmin: {
		"business.manage",
		"users.create",
		"users.read",
		"users.update",
		"users.delete",
		"locations.manage",
		"clients.manage",
		"consumos.manage",
		"reports.view",
		"settings.manage",
		"billing.manage",
	},
	RoleAdmin: {
		"users.create",
		"users.read",
		"users.update",
		"clients.manage",
		"consumos.manage",
		"reports.view",
		"locations.read",
	},
	RoleStaff: {
		"clients.read",
		"clients.create",
		"consumos.create",
		"consumos.read",
	},
}

// Permissions returns the permission set for role. The returned slice must
// not be mutated.
func Permissions(role Role) []string {
	return rolePermissions[role]
}

// HasPermission reports whether role grants permission. SUPERADMIN is
// unrestricted.
func HasPermission(role Role, permission string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// LandingPath is where a role is sent when it hits an area above its
// privilege: a role-narrowing redirect, not a denial.
func LandingPath(role Role) string {
	switch role {
	case RoleSuperAdmin:
		return "/superadmin"
	case RoleAdmin:
		return "/admin"
	default:
		return "/staff"
	}
}
