package semantic

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

// PgIndex stores embeddings in Postgres using the pgvector extension.
// Search joins the inventory table so results always reflect current item
// state; a row deleted from inventory simply stops matching.
type PgIndex struct {
	db   *sqlx.DB
	dims int
}

var _ Index = (*PgIndex)(nil)

// NewPgIndex opens a pgvector-backed index. dims fixes the vector column
// width and must match the embedding model.
func NewPgIndex(dsn string, dims int) (*PgIndex, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("semantic: open postgres: %w", err)
	}
	return &PgIndex{db: db, dims: dims}, nil
}

// NewPgIndexFromDB wraps an existing connection, for callers that share a
// pool with the inventory source.
func NewPgIndexFromDB(db *sqlx.DB, dims int) *PgIndex {
	return &PgIndex{db: db, dims: dims}
}

// Close closes the underlying pool.
func (p *PgIndex) Close() error { return p.db.Close() }

// Dims returns the configured vector column width.
func (p *PgIndex) Dims() int { return p.dims }

// EnsureSchema creates the extension and tables if they do not exist.
func (p *PgIndex) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS inventory (
			id            TEXT PRIMARY KEY,
			dealership_id TEXT NOT NULL,
			make          TEXT NOT NULL DEFAULT '',
			model         TEXT NOT NULL DEFAULT '',
			year          INT  NOT NULL DEFAULT 0,
			price         INT  NOT NULL DEFAULT 0,
			mileage       INT  NOT NULL DEFAULT 0,
			color         TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			features      TEXT NOT NULL DEFAULT '',
			condition     TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'active'
		)`,
		`CREATE INDEX IF NOT EXISTS inventory_dealership_idx ON inventory (dealership_id, status)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vehicle_embeddings (
			item_id     TEXT NOT NULL REFERENCES inventory (id) ON DELETE CASCADE,
			tenant_id   TEXT NOT NULL,
			source_text TEXT NOT NULL DEFAULT '',
			embedding   vector(%d) NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, item_id)
		)`, p.dims),
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("semantic: ensure schema: %w", err)
		}
	}
	return nil
}

// formatVector renders a pgvector literal, bound as a parameter and cast
// with ::vector. Vector data never gets interpolated into SQL text.
func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// parseVector reads a pgvector literal back into a slice.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("semantic: malformed vector literal %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, ErrEmptyVector
	}
	parts := strings.Split(inner, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("semantic: malformed vector element %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// Upsert implements Index. The inventory row is written first so the
// embedding's foreign key always resolves.
func (p *PgIndex) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("semantic: upsert: %w", err)
	}
	defer tx.Rollback()

	const itemStmt = `
		INSERT INTO inventory (id, dealership_id, make, model, year, price, mileage,
			color, description, features, condition, status)
		VALUES (:id, :dealership_id, :make, :model, :year, :price, :mileage,
			:color, :description, :features, :condition, :status)
		ON CONFLICT (id) DO UPDATE SET
			dealership_id = EXCLUDED.dealership_id,
			make = EXCLUDED.make, model = EXCLUDED.model, year = EXCLUDED.year,
			price = EXCLUDED.price, mileage = EXCLUDED.mileage,
			color = EXCLUDED.color, description = EXCLUDED.description,
			features = EXCLUDED.features, condition = EXCLUDED.condition,
			status = EXCLUDED.status`
	const embStmt = `
		INSERT INTO vehicle_embeddings (item_id, tenant_id, source_text, embedding, updated_at)
		VALUES ($1, $2, $3, $4::vector, now())
		ON CONFLICT (tenant_id, item_id) DO UPDATE SET
			source_text = EXCLUDED.source_text,
			embedding = EXCLUDED.embedding,
			updated_at = now()`

	for _, e := range entries {
		if len(e.Embedding) != p.dims {
			return fmt.Errorf("semantic: item %s has %d dims, column has %d: %w",
				e.ItemID, len(e.Embedding), p.dims, ErrDimensionMismatch)
		}
		if _, err := tx.NamedExecContext(ctx, itemStmt, e.Item); err != nil {
			return fmt.Errorf("semantic: upsert item %s: %w", e.ItemID, err)
		}
		if _, err := tx.ExecContext(ctx, embStmt, e.ItemID, e.TenantID, e.SourceText, formatVector(e.Embedding)); err != nil {
			return fmt.Errorf("semantic: upsert embedding %s: %w", e.ItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("semantic: upsert: %w", err)
	}
	return nil
}

// searchRow scans one joined result row.
type searchRow struct {
	domain.InventoryItem
	Score float64 `db:"score"`
}

// Search implements Index. pgvector's <=> operator is cosine distance, so
// similarity is 1 - distance. The tenant is checked on both the embedding
// row and the joined inventory row: an item re-homed to another dealership
// stops matching even while a stale embedding row for the old tenant
// survives.
func (p *PgIndex) Search(ctx context.Context, tenantID string, query []float32, k int, minScore float64) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	if len(query) != p.dims {
		return nil, fmt.Errorf("semantic: query has %d dims, column has %d: %w", len(query), p.dims, ErrDimensionMismatch)
	}

	const q = `
		SELECT i.id, i.dealership_id, i.make, i.model, i.year, i.price, i.mileage,
			i.color, i.description, i.features, i.condition, i.status,
			1 - (e.embedding <=> $1::vector) AS score
		FROM vehicle_embeddings e
		JOIN inventory i ON i.id = e.item_id
		WHERE e.tenant_id = $2
			AND i.dealership_id = $2
			AND i.status = 'active'
			AND 1 - (e.embedding <=> $1::vector) >= $3
		ORDER BY score DESC, i.id ASC
		LIMIT $4`

	var rows []searchRow
	if err := p.db.SelectContext(ctx, &rows, q, formatVector(query), tenantID, minScore, k); err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(rows))
	for i, r := range rows {
		results[i] = SearchResult{Rank: i + 1, Score: r.Score, Item: r.InventoryItem}
	}
	return results, nil
}

// Delete implements Index. Only the embedding is removed; the inventory row
// is owned by the inventory source.
func (p *PgIndex) Delete(ctx context.Context, tenantID, itemID string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM vehicle_embeddings WHERE tenant_id = $1 AND item_id = $2`, tenantID, itemID)
	if err != nil {
		return fmt.Errorf("semantic: delete %s: %w", itemID, err)
	}
	return nil
}

// DeleteAll implements Index.
func (p *PgIndex) DeleteAll(ctx context.Context, tenantID string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM vehicle_embeddings WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("semantic: delete all: %w", err)
	}
	return nil
}

// Count implements Index.
func (p *PgIndex) Count(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := p.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM vehicle_embeddings WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return n, nil
}

// Contains implements Index.
func (p *PgIndex) Contains(ctx context.Context, tenantID, itemID string) (bool, error) {
	var n int
	err := p.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM vehicle_embeddings WHERE tenant_id = $1 AND item_id = $2`, tenantID, itemID)
	if err != nil {
		return false, fmt.Errorf("semantic: contains: %w", err)
	}
	return n > 0, nil
}

// MissingEmbeddings returns active inventory items for the tenant that have
// no stored embedding. The backfill path embeds exactly these.
func (p *PgIndex) MissingEmbeddings(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
	const q = `
		SELECT i.id, i.dealership_id, i.make, i.model, i.year, i.price, i.mileage,
			i.color, i.description, i.features, i.condition, i.status
		FROM inventory i
		LEFT JOIN vehicle_embeddings e
			ON e.item_id = i.id AND e.tenant_id = $1
		WHERE i.dealership_id = $1
			AND i.status = 'active'
			AND e.item_id IS NULL
		ORDER BY i.id`

	var items []domain.InventoryItem
	if err := p.db.SelectContext(ctx, &items, q, tenantID); err != nil {
		return nil, fmt.Errorf("semantic: missing embeddings: %w", err)
	}
	return items, nil
}
