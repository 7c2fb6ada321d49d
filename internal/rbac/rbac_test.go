package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuperAdminBypassesAllChecks(t *testing.T) {
	assert.True(t, HasPermission(RoleSuperAdmin, "business.manage"))
	assert.True(t, HasPermission(RoleSuperAdmin, "billing.manage"))
	assert.True(t, HasPermission(RoleSuperAdmin, "anything.at.all"))
}

func TestAdminCannotManageBusiness(t *testing.T) {
	assert.False(t, HasPermission(RoleAdmin, "business.manage"))
	assert.True(t, HasPermission(RoleAdmin, "clients.manage"))
	assert.True(t, HasPermission(RoleAdmin, "consumos.manage"))
	assert.True(t, HasPermission(RoleAdmin, "reports.view"))
}

func TestStaffReadCreateSubsetOnly(t *testing.T) {
	assert.True(t, HasPermission(RoleStaff, "clients.read"))
	assert.True(t, HasPermission(RoleStaff, "clients.create"))
	assert.True(t, HasPermission(RoleStaff, "consumos.create"))
	assert.True(t, HasPermission(RoleStaff, "consumos.read"))
	assert.False(t, HasPermission(RoleStaff, "clients.manage"))
	assert.False(t, HasPermission(RoleStaff, "users.read"))
	assert.False(t, HasPermission(RoleStaff, "reports.view"))
}

func TestUnknownRoleHasNothing(t *testing.T) {
	assert.False(t, HasPermission(Role("CLIENTE"), "clients.read"))
	assert.False(t, Role("CLIENTE").Valid())
}

func TestLandingPaths(t *testing.T) {
	assert.Equal(t, "/superadmin", LandingPath(RoleSuperAdmin))
	assert.Equal(t, "/admin", LandingPath(RoleAdmin))
	assert.Equal(t, "/staff", LandingPath(RoleStaff))
}

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/acme/superadmin", "business.manage"},
		{"/acme/staff", ""},
		{"/api/staff/consumos", ""},
		{"/api/admin/users", "users.read"},
		{"/api/admin/clients", "clients.manage"},
		{"/api/admin/consumos", "consumos.manage"},
		{"/acme/admin/settings", "settings.manage"},
		{"/acme/admin/billing", "billing.manage"},
		{"/acme/admin", "reports.view"},
		{"/dashboard", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RequiredPermission(tt.path), tt.path)
	}
}
