// Package retrieval orchestrates hybrid vehicle search: deterministic entity
// extraction, embedding-based similarity over the vector index, and
// metadata-aware filtering and re-ranking on top. It also owns index
// lifecycle operations (rebuild, backfill, per-item refresh).
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/inventory"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/semantic"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/embed"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/fn"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/metrics"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/vehiclenlp"
)

// Weights holds the re-ranking constants. The defaults are empirical tuning
// values, not derived quantities; treat them as config.
type Weights struct {
	// BodyTypePenalty multiplies the score when the requested body type is
	// not evident in the item text.
	BodyTypePenalty float64
	// ColorPenalty multiplies the score when the requested color mismatches.
	ColorPenalty float64
	// FeaturePenalty multiplies the score once per requested feature the
	// item does not mention.
	FeaturePenalty float64
	// MakeBonus is added for an exact make match.
	MakeBonus float64
	// ScoreCap bounds the final score after the bonus.
	ScoreCap float64
}

// DefaultWeights returns the tuned production constants.
func DefaultWeights() Weights {
	return Weights{
		BodyTypePenalty: 0.9,
		ColorPenalty:    0.9,
		FeaturePenalty:  0.8,
		MakeBonus:       0.2,
		ScoreCap:        1.0,
	}
}

// Options configures the retrieval service.
type Options struct {
	// TopK is the default result count when the caller passes k <= 0.
	TopK int
	// MinScore is the similarity floor for plain search.
	MinScore float64
	// PoolMultiplier widens the hybrid candidate pool to k * PoolMultiplier.
	PoolMultiplier int
	// PoolFloorDelta lowers the similarity floor for the widened pool.
	PoolFloorDelta float64
	// RebuildWorkers bounds embedding concurrency during rebuild/backfill.
	RebuildWorkers int
	// EmbedBatch is how many items go into one embedding call.
	EmbedBatch int
	// SnapshotBase, when set and the backend is the flat index, is the base
	// path snapshots are loaded from on Init and written to after rebuild.
	SnapshotBase string
	Weights      Weights
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:           5,
		MinScore:       0.30,
		PoolMultiplier: 2,
		PoolFloorDelta: 0.15,
		RebuildWorkers: 4,
		EmbedBatch:     32,
		Weights:        DefaultWeights(),
	}
}

// missingLister is implemented by backends that can compute the backfill set
// themselves (the Postgres index, via a LEFT JOIN).
type missingLister interface {
	MissingEmbeddings(ctx context.Context, tenantID string) ([]domain.InventoryItem, error)
}

// replacer is implemented by backends with an atomic whole-tenant swap.
type replacer interface {
	ReplaceAll(ctx context.Context, tenantID string, entries []semantic.VectorEntry) error
}

// Service is the hybrid retriever. All dependencies are injected; there is
// no package-global state.
type Service struct {
	index    semantic.Index
	provider embed.Provider
	source   inventory.Source
	opts     Options
	log      *slog.Logger
	ready    atomic.Bool

	searches       *metrics.Counter
	fallbacks      *metrics.Counter
	variantSkips   *metrics.Counter
	searchDuration *metrics.Histogram
	itemsIndexed   *metrics.Counter
}

// New creates a Service. source may be nil for deployments that only serve
// queries against a pre-built index; reg may be nil to disable metrics.
func New(index semantic.Index, provider embed.Provider, source inventory.Source, opts Options, log *slog.Logger, reg *metrics.Registry) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.PoolMultiplier <= 0 {
		opts.PoolMultiplier = 2
	}
	if opts.RebuildWorkers <= 0 {
		opts.RebuildWorkers = 4
	}
	if opts.EmbedBatch <= 0 {
		opts.EmbedBatch = 32
	}
	s := &Service{index: index, provider: provider, source: source, opts: opts, log: log}
	if reg != nil {
		s.searches = reg.Counter("retrieval_searches_total", "Total search requests")
		s.fallbacks = reg.Counter("retrieval_hybrid_fallbacks_total", "Hybrid searches that fell back to plain vector results")
		s.variantSkips = reg.Counter("retrieval_variant_failures_total", "Query variants skipped after search failure")
		s.searchDuration = reg.Histogram("retrieval_search_duration_seconds", "Search latency", nil)
		s.itemsIndexed = reg.Counter("retrieval_items_indexed_total", "Items embedded and upserted")
	}
	return s
}

// Init prepares the service for queries. For the flat backend with a
// configured snapshot, a missing snapshot is not fatal: the index starts
// empty and RebuildIndex populates it.
func (s *Service) Init(ctx context.Context) error {
	if s.index == nil || s.provider == nil {
		return domain.ErrNotInitialized
	}
	if flat, ok := s.index.(*semantic.FlatIndex); ok && s.opts.SnapshotBase != "" {
		if err := flat.Load(s.opts.SnapshotBase); err != nil {
			s.log.Warn("no usable index snapshot, starting empty", "base", s.opts.SnapshotBase, "error", err)
		} else {
			s.log.Info("index snapshot loaded", "base", s.opts.SnapshotBase)
		}
	}
	s.ready.Store(true)
	return nil
}

// Ready reports whether the service accepts queries.
func (s *Service) Ready() bool { return s.ready.Load() }

// Shutdown stops accepting queries and persists the flat snapshot if one is
// configured.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	if flat, ok := s.index.(*semantic.FlatIndex); ok && s.opts.SnapshotBase != "" {
		if err := flat.Save(s.opts.SnapshotBase); err != nil {
			return fmt.Errorf("retrieval: shutdown snapshot: %w", err)
		}
	}
	return nil
}

func (s *Service) checkQuery(query, tenantID string) error {
	if !s.ready.Load() {
		return domain.ErrNotInitialized
	}
	if strings.TrimSpace(query) == "" {
		return domain.ErrEmptyQuery
	}
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	return nil
}

// Search runs the plain vector path: embed the query, rank by similarity.
// No results is an empty slice, not an error.
func (s *Service) Search(ctx context.Context, query, tenantID string, k int) ([]semantic.SearchResult, error) {
	if err := s.checkQuery(query, tenantID); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	defer s.observeSearch(time.Now())

	vec, err := s.provider.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	results, err := s.index.Search(ctx, tenantID, vec, k, s.opts.MinScore)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search: %w", err)
	}
	return results, nil
}

// SearchHybrid runs the full hybrid path. Queries without strong structured
// signals take the plain path unchanged. Otherwise candidates are gathered
// from the original query plus derived variants over a widened pool, deduped
// per physical listing, filtered and re-ranked; if filtering removes
// everything, the deduped vector-ranked pool is returned instead of nothing.
func (s *Service) SearchHybrid(ctx context.Context, query, tenantID string, k int) ([]semantic.SearchResult, error) {
	if err := s.checkQuery(query, tenantID); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	defer s.observeSearch(time.Now())

	sq := vehiclenlp.Parse(query)
	if !sq.HasStrongSignals() {
		return s.Search(ctx, query, tenantID, k)
	}

	poolK := k * s.opts.PoolMultiplier
	floor := s.opts.MinScore - s.opts.PoolFloorDelta
	if floor < 0 {
		floor = 0
	}

	variants := buildVariants(query, sq)
	var pool []semantic.SearchResult
	succeeded := 0
	for _, v := range variants {
		hits, err := s.searchOne(ctx, v, tenantID, poolK, floor)
		if err != nil {
			if s.variantSkips != nil {
				s.variantSkips.Inc()
			}
			s.log.Warn("query variant failed, skipping", "variant", v, "error", err)
			continue
		}
		succeeded++
		pool = append(pool, hits...)
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("retrieval: all query variants failed for %q", query)
	}

	// Highest score per physical listing survives the dedup.
	sortResults(pool)
	pool = fn.UniqueBy(pool, func(r semantic.SearchResult) string { return r.Item.DedupKey() })

	filtered := applyFilters(pool, sq, s.opts.Weights)
	if len(filtered) == 0 {
		if s.fallbacks != nil {
			s.fallbacks.Inc()
		}
		s.log.Info("filters removed all candidates, falling back to vector results",
			"tenant", tenantID, "candidates", len(pool))
		filtered = pool
	}

	if len(filtered) > k {
		filtered = filtered[:k]
	}
	for i := range filtered {
		filtered[i].Rank = i + 1
	}
	return filtered, nil
}

func (s *Service) searchOne(ctx context.Context, query, tenantID string, k int, floor float64) ([]semantic.SearchResult, error) {
	vec, err := s.provider.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return s.index.Search(ctx, tenantID, vec, k, floor)
}

func (s *Service) observeSearch(start time.Time) {
	if s.searches != nil {
		s.searches.Inc()
	}
	if s.searchDuration != nil {
		s.searchDuration.Since(start)
	}
}

// RebuildIndex re-embeds the tenant's full inventory and replaces the index
// contents. Returns the number of items indexed.
func (s *Service) RebuildIndex(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, domain.ErrTenantRequired
	}
	if s.source == nil {
		return 0, fmt.Errorf("retrieval: rebuild: no inventory source configured")
	}

	items, err := s.source.Items(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("retrieval: rebuild: %w", err)
	}
	if len(items) == 0 {
		return 0, domain.ErrEmptyInventory
	}

	entries, err := s.embedItems(ctx, tenantID, items)
	if err != nil {
		return 0, fmt.Errorf("retrieval: rebuild: %w", err)
	}

	if r, ok := s.index.(replacer); ok {
		err = r.ReplaceAll(ctx, tenantID, entries)
	} else {
		if err = s.index.DeleteAll(ctx, tenantID); err == nil {
			err = s.index.Upsert(ctx, entries)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("retrieval: rebuild: %w", err)
	}

	if flat, ok := s.index.(*semantic.FlatIndex); ok && s.opts.SnapshotBase != "" {
		if err := flat.Save(s.opts.SnapshotBase); err != nil {
			return 0, fmt.Errorf("retrieval: rebuild snapshot: %w", err)
		}
	}
	if s.itemsIndexed != nil {
		s.itemsIndexed.Add(int64(len(entries)))
	}
	s.log.Info("index rebuilt", "tenant", tenantID, "items", len(entries))
	return len(entries), nil
}

// BackfillMissing embeds only items that have no live vector entry. Safe to
// run repeatedly; a second run finds nothing to do.
func (s *Service) BackfillMissing(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, domain.ErrTenantRequired
	}

	var missing []domain.InventoryItem
	var err error
	if ml, ok := s.index.(missingLister); ok {
		missing, err = ml.MissingEmbeddings(ctx, tenantID)
		if err != nil {
			return 0, fmt.Errorf("retrieval: backfill: %w", err)
		}
	} else {
		if s.source == nil {
			return 0, fmt.Errorf("retrieval: backfill: no inventory source configured")
		}
		items, err := s.source.Items(ctx, tenantID)
		if err != nil {
			return 0, fmt.Errorf("retrieval: backfill: %w", err)
		}
		for _, it := range items {
			ok, err := s.index.Contains(ctx, tenantID, it.ID)
			if err != nil {
				return 0, fmt.Errorf("retrieval: backfill: %w", err)
			}
			if !ok {
				missing = append(missing, it)
			}
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	entries, err := s.embedItems(ctx, tenantID, missing)
	if err != nil {
		return 0, fmt.Errorf("retrieval: backfill: %w", err)
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("retrieval: backfill: %w", err)
	}
	if s.itemsIndexed != nil {
		s.itemsIndexed.Add(int64(len(entries)))
	}
	s.log.Info("backfill complete", "tenant", tenantID, "items", len(entries))
	return len(entries), nil
}

// embedItems formats and embeds items with bounded concurrency, preserving
// order. Any batch failure fails the whole operation.
func (s *Service) embedItems(ctx context.Context, tenantID string, items []domain.InventoryItem) ([]semantic.VectorEntry, error) {
	batches := fn.Chunk(items, s.opts.EmbedBatch)
	results := fn.ParMapResult(batches, s.opts.RebuildWorkers, func(batch []domain.InventoryItem) fn.Result[[]semantic.VectorEntry] {
		texts := fn.Map(batch, func(it domain.InventoryItem) string { return it.FormatForEmbedding() })
		vecs, err := s.provider.EmbedTexts(ctx, texts)
		if err != nil {
			return fn.Err[[]semantic.VectorEntry](err)
		}
		entries := make([]semantic.VectorEntry, len(batch))
		for i, it := range batch {
			entries[i] = semantic.VectorEntry{
				ItemID:     it.ID,
				TenantID:   tenantID,
				SourceText: texts[i],
				Item:       it,
				Embedding:  vecs[i],
			}
		}
		return fn.Ok(entries)
	})

	collected, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, err
	}
	return fn.FlatMap(collected, func(e []semantic.VectorEntry) []semantic.VectorEntry { return e }), nil
}

// RefreshItem re-embeds a single item, keeping its vector entry consistent
// with an inventory update.
func (s *Service) RefreshItem(ctx context.Context, item domain.InventoryItem) error {
	if err := domain.ValidateItem(item); err != nil {
		return err
	}
	entries, err := s.embedItems(ctx, item.DealershipID, []domain.InventoryItem{item})
	if err != nil {
		return fmt.Errorf("retrieval: refresh %s: %w", item.ID, err)
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("retrieval: refresh %s: %w", item.ID, err)
	}
	return nil
}

// RemoveItem drops an item's vector entry. Removing an absent item is a
// no-op.
func (s *Service) RemoveItem(ctx context.Context, tenantID, itemID string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	if err := s.index.Delete(ctx, tenantID, itemID); err != nil {
		return fmt.Errorf("retrieval: remove %s: %w", itemID, err)
	}
	return nil
}

// Stats describes the index state for one tenant.
type Stats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	// Missing is the backfill candidate count, or -1 when the backend
	// cannot compute it without a full source scan.
	Missing int `json:"missing"`
	// Dims is the embedding dimension, or 0 when the index is empty and
	// has not fixed one yet.
	Dims  int  `json:"dims"`
	Ready bool `json:"ready"`
}

// Stats reports index state for the health endpoint.
func (s *Service) Stats(ctx context.Context, tenantID string) (Stats, error) {
	if tenantID == "" {
		return Stats{}, domain.ErrTenantRequired
	}
	st := Stats{Ready: s.ready.Load(), Missing: -1}
	if d, ok := s.index.(interface{ Dims() int }); ok {
		st.Dims = d.Dims()
	}
	switch s.index.(type) {
	case *semantic.FlatIndex:
		st.Backend = "flat"
	case *semantic.PgIndex:
		st.Backend = "pgvector"
	default:
		st.Backend = "custom"
	}

	n, err := s.index.Count(ctx, tenantID)
	if err != nil {
		return Stats{}, fmt.Errorf("retrieval: stats: %w", err)
	}
	st.Entries = n

	if ml, ok := s.index.(missingLister); ok {
		if missing, err := ml.MissingEmbeddings(ctx, tenantID); err == nil {
			st.Missing = len(missing)
		}
	}
	return st, nil
}
