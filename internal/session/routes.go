package session

import (
	"regexp"
	"strings"
)

// RouteType classifies a path by the session kind it demands. Detection
// always runs against the original pathname, before any tenant rewrite.
type RouteType string

const (
	RouteAdmin  RouteType = "admin"
	RouteClient RouteType = "client"
	RoutePublic RouteType = "public"
)

var (
	adminPathPattern  = regexp.MustCompile(`^/[^/]+/(admin|staff|superadmin)`)
	clientPathPattern = regexp.MustCompile(`^/[^/]+/cliente`)
	// clientEntryPattern requires the segment to be exactly "cliente".
	// "/acme/clientes" is a data path, not a portal entry.
	clientEntryPattern = regexp.MustCompile(`^/[^/]+/cliente(/|$)`)
)

// RouteTypeOf returns the route family for path.
func RouteTypeOf(path string) RouteType {
	switch {
	case adminPathPattern.MatchString(path):
		return RouteAdmin
	case clientPathPattern.MatchString(path):
		return RouteClient
	case strings.HasPrefix(path, "/api/admin/"), strings.HasPrefix(path, "/api/staff/"):
		return RouteAdmin
	case strings.HasPrefix(path, "/api/cliente/"):
		return RouteClient
	}
	return RoutePublic
}

// IsAdminPath reports whether path is a tenant-scoped administrative page.
func IsAdminPath(path string) bool {
	return adminPathPattern.MatchString(path)
}

// IsClientPath reports whether path is a tenant-scoped client portal page.
func IsClientPath(path string) bool {
	return clientPathPattern.MatchString(path)
}

// IsClientEntryPath reports whether path enters the cookie-free client
// portal. Unlike IsClientPath, the portal segment must be exact: anything
// that merely starts with "cliente" stays behind the session gates.
func IsClientEntryPath(path string) bool {
	return clientEntryPattern.MatchString(path)
}
