package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lealta/gateway/internal/identity"
)

// ClientRepository implements identity.ClientRepository
type ClientRepository struct {
	db *DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// FindByCedula retrieves a loyalty client by national id within a business.
func (r *ClientRepository) FindByCedula(ctx context.Context, cedula, businessID string) (*identity.Client, error) {
	var c identity.Client

	err := r.db.pool.QueryRow(ctx, `
		SELECT cedula, business_id
		FROM clientes
		WHERE cedula = $1 AND business_id = $2
	`, cedula, businessID).Scan(&c.Cedula, &c.BusinessID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query client: %w", err)
	}

	return &c, nil
}
