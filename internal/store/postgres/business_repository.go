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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lealta/gateway/internal/business"
)

// BusinessRepository implements business.Repository
type BusinessRepository struct {
	db *DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// FindByIdentifier retrieves an active business by id, slug, or subdomain.
func (r *BusinessRepository) FindByIdentifier(ctx context.Context, identifier string) (*business.Business, error) {
	var b business.Business

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, slug, subdomain, is_active, created_at, updated_at
		FROM businesses
		WHERE (id = $1 OR slug = $1 OR subdomain = $1) AND is_active = TRUE
	`, identifier).Scan(
		&b.ID, &b.Name, &b.Slug, &b.Subdomain, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, business.ErrBusinessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query business: %w", err)
	}

	return &b, nil
}
