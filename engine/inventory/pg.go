package inventory

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

// PgSource reads active inventory from the Postgres inventory table,
// typically sharing a pool with the pgvector index.
type PgSource struct {
	db *sqlx.DB
}

// NewPgSource wraps an existing connection pool.
func NewPgSource(db *sqlx.DB) *PgSource {
	return &PgSource{db: db}
}

// Items implements Source.
func (s *PgSource) Items(ctx context.Context, dealershipID string) ([]domain.InventoryItem, error) {
	if dealershipID == "" {
		return nil, domain.ErrTenantRequired
	}
	const q = `
		SELECT id, dealership_id, make, model, year, price, mileage,
			color, description, features, condition, status
		FROM inventory
		WHERE dealership_id = $1 AND status = 'active'
		ORDER BY id`

	var items []domain.InventoryItem
	if err := s.db.SelectContext(ctx, &items, q, dealershipID); err != nil {
		return nil, fmt.Errorf("inventory: list for %s: %w", dealershipID, err)
	}
	return items, nil
}
