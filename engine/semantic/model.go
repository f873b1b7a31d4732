// Package semantic owns vector storage and similarity search. Two backends
// implement the same Index contract: an in-process flat index with snapshot
// persistence, and a Postgres store using the pgvector extension. Scores are
// cosine similarity in [-1, 1]; both backends rank identically for the same
// data up to float tolerance.
package semantic

import (
	"context"
	"errors"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

var (
	// ErrDimensionMismatch rejects vectors whose length differs from the
	// index dimension fixed by the first insert.
	ErrDimensionMismatch = errors.New("semantic: embedding dimension mismatch")
	// ErrEmptyVector rejects zero-length or all-zero query vectors.
	ErrEmptyVector = errors.New("semantic: empty embedding")
)

// VectorEntry is one stored vehicle embedding plus the metadata needed to
// filter and present it without a second lookup.
type VectorEntry struct {
	ItemID     string               `json:"item_id"`
	TenantID   string               `json:"tenant_id"`
	SourceText string               `json:"source_text"`
	Item       domain.InventoryItem `json:"item"`
	Embedding  []float32            `json:"-"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Rank  int                  `json:"rank"`
	Score float64              `json:"score"`
	Item  domain.InventoryItem `json:"item"`
}

// Index is the backend contract shared by the flat and Postgres stores.
// All operations are tenant-scoped; an empty tenant is rejected upstream
// by domain validation.
type Index interface {
	// Upsert inserts or replaces entries keyed by (tenant, item id).
	Upsert(ctx context.Context, entries []VectorEntry) error
	// Search returns up to k active items for the tenant with similarity
	// >= minScore, ordered by score descending, ties broken by item id.
	Search(ctx context.Context, tenantID string, query []float32, k int, minScore float64) ([]SearchResult, error)
	// Delete removes one item. Deleting an absent item is not an error.
	Delete(ctx context.Context, tenantID, itemID string) error
	// DeleteAll removes every entry for the tenant.
	DeleteAll(ctx context.Context, tenantID string) error
	// Count reports how many entries the tenant has.
	Count(ctx context.Context, tenantID string) (int, error)
	// Contains reports whether the item has a stored embedding.
	Contains(ctx context.Context, tenantID, itemID string) (bool, error)
}
