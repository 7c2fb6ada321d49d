package rbac

import "strings"

// RequiredPermission maps a protected path to the permission the dispatcher
// checks before letting an administrative session through. An empty result
// means the area is gated by role alone (the staff counter screens, which
// both ADMIN and STAFF reach with different permission sets).
func RequiredPermission(path string) string {
	switch {
	case strings.Contains(path, "/superadmin"):
		return "business.manage"
	case strings.Contains(path, "/staff"):
		return ""
	case strings.Contains(path, "/users"):
		return "users.read"
	case strings.Contains(path, "/clients"):
		return "clients.manage"
	case strings.Contains(path, "/consumos"):
		return "consumos.manage"
	case strings.Contains(path, "/settings"):
		return "settings.manage"
	case strings.Contains(path, "/billing"):
		return "billing.manage"
	case strings.Contains(path, "/admin"):
		return "reports.view"
	}
	return ""
}
