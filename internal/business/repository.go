package business

import (
	"context"
	"errors"
)

var (
	// ErrBusinessNotFound means the identifier did not match any active
	// business. Callers must distinguish this from "no tenant segment".
	ErrBusinessNotFound = errors.New("business not found")
)

// Repository defines the read-only interface over the business store.
type Repository interface {
	// FindByIdentifier returns the active business whose id, slug or
	// subdomain equals identifier, or ErrBusinessNotFound.
	FindByIdentifier(ctx context.Context, identifier string) (*Business, error)
}
