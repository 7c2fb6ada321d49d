package business

import (
	"time"
)

// Business is one customer organization, addressable by a URL-path segment
// in subdomain or slug form. The gateway only reads these records; the admin
// product owns them.
type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Subdomain string    `json:"subdomain"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Context is the per-request tenant context assembled after resolution.
// RemainingPath is the request path with the leading tenant segment stripped.
type Context struct {
	BusinessID    string
	Subdomain     string
	RemainingPath string
	Business      *Business
}
