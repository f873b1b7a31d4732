// Package inventory provides the sources that feed index rebuilds and
// backfills: a CSV file export and a Postgres table.
package inventory

import (
	"context"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

// Source lists the inventory items to index for a dealership.
type Source interface {
	// Items returns the dealership's indexable items. Implementations skip
	// unusable rows rather than failing the whole listing.
	Items(ctx context.Context, dealershipID string) ([]domain.InventoryItem, error)
}
