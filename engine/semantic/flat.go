package semantic

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

// Snapshot file magic and version. Bumping the version invalidates old
// snapshots, forcing a rebuild instead of a misread.
const (
	snapshotMagic   = uint32(0x4d515646) // "MQVF"
	snapshotVersion = uint32(1)
)

// FlatIndex is an exact-scan in-memory index. Vectors are unit-normalized
// on insert so similarity reduces to an inner product. Suited to inventories
// up to the low tens of thousands of items; beyond that use the Postgres
// backend.
type FlatIndex struct {
	mu      sync.RWMutex
	dims    int
	entries []VectorEntry // embeddings normalized, positions match meta order on disk
	byKey   map[string]int
}

var _ Index = (*FlatIndex)(nil)

// NewFlatIndex creates an empty flat index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{byKey: make(map[string]int)}
}

func entryKey(tenantID, itemID string) string { return tenantID + "\x00" + itemID }

// Dims returns the vector dimension, or 0 before the first insert.
func (f *FlatIndex) Dims() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dims
}

// normalize returns a unit-length copy of v, or nil for a zero vector.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Upsert implements Index.
func (f *FlatIndex) Upsert(ctx context.Context, entries []VectorEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		norm := normalize(e.Embedding)
		if norm == nil {
			return fmt.Errorf("semantic: item %s: %w", e.ItemID, ErrEmptyVector)
		}
		if f.dims == 0 {
			f.dims = len(norm)
		} else if len(norm) != f.dims {
			return fmt.Errorf("semantic: item %s has %d dims, index has %d: %w",
				e.ItemID, len(norm), f.dims, ErrDimensionMismatch)
		}
		e.Embedding = norm
		key := entryKey(e.TenantID, e.ItemID)
		if i, ok := f.byKey[key]; ok {
			f.entries[i] = e
		} else {
			f.byKey[key] = len(f.entries)
			f.entries = append(f.entries, e)
		}
	}
	return nil
}

// ReplaceAll atomically swaps the tenant's entries for a freshly built set.
// Readers see either the old index or the new one, never a partial state.
func (f *FlatIndex) ReplaceAll(ctx context.Context, tenantID string, entries []VectorEntry) error {
	normalized := make([]VectorEntry, 0, len(entries))
	dims := 0
	for _, e := range entries {
		norm := normalize(e.Embedding)
		if norm == nil {
			return fmt.Errorf("semantic: item %s: %w", e.ItemID, ErrEmptyVector)
		}
		if dims == 0 {
			dims = len(norm)
		} else if len(norm) != dims {
			return fmt.Errorf("semantic: item %s has %d dims, batch has %d: %w",
				e.ItemID, len(norm), dims, ErrDimensionMismatch)
		}
		e.Embedding = norm
		normalized = append(normalized, e)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dims != 0 && dims != 0 && dims != f.dims {
		return fmt.Errorf("semantic: batch has %d dims, index has %d: %w", dims, f.dims, ErrDimensionMismatch)
	}

	kept := make([]VectorEntry, 0, len(f.entries))
	for _, e := range f.entries {
		if e.TenantID != tenantID {
			kept = append(kept, e)
		}
	}
	kept = append(kept, normalized...)

	byKey := make(map[string]int, len(kept))
	for i, e := range kept {
		byKey[entryKey(e.TenantID, e.ItemID)] = i
	}
	f.entries = kept
	f.byKey = byKey
	if f.dims == 0 {
		f.dims = dims
	}
	return nil
}

// Search implements Index.
func (f *FlatIndex) Search(ctx context.Context, tenantID string, query []float32, k int, minScore float64) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	norm := normalize(query)
	if norm == nil {
		return nil, ErrEmptyVector
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.dims != 0 && len(norm) != f.dims {
		return nil, fmt.Errorf("semantic: query has %d dims, index has %d: %w", len(norm), f.dims, ErrDimensionMismatch)
	}

	var hits []SearchResult
	for _, e := range f.entries {
		if e.TenantID != tenantID || e.Item.Status != domain.StatusActive {
			continue
		}
		score := dot(norm, e.Embedding)
		if score < minScore {
			continue
		}
		hits = append(hits, SearchResult{Score: score, Item: e.Item})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Item.ID < hits[j].Item.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

// Delete implements Index.
func (f *FlatIndex) Delete(ctx context.Context, tenantID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := entryKey(tenantID, itemID)
	i, ok := f.byKey[key]
	if !ok {
		return nil
	}
	last := len(f.entries) - 1
	if i != last {
		f.entries[i] = f.entries[last]
		f.byKey[entryKey(f.entries[i].TenantID, f.entries[i].ItemID)] = i
	}
	f.entries = f.entries[:last]
	delete(f.byKey, key)
	return nil
}

// DeleteAll implements Index.
func (f *FlatIndex) DeleteAll(ctx context.Context, tenantID string) error {
	return f.ReplaceAll(ctx, tenantID, nil)
}

// Count implements Index.
func (f *FlatIndex) Count(ctx context.Context, tenantID string) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, e := range f.entries {
		if e.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Contains implements Index.
func (f *FlatIndex) Contains(ctx context.Context, tenantID, itemID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.byKey[entryKey(tenantID, itemID)]
	return ok, nil
}

// Save writes the index to two artifacts: <base>.vec holds the raw vectors,
// <base>.meta.json holds the entries in the same order. The positional
// correspondence between the two files is the snapshot's core invariant.
func (f *FlatIndex) Save(base string) error {
	f.mu.RLock()
	entries := make([]VectorEntry, len(f.entries))
	copy(entries, f.entries)
	dims := f.dims
	f.mu.RUnlock()

	vecPath, metaPath := base+".vec", base+".meta.json"

	vf, err := os.Create(vecPath)
	if err != nil {
		return fmt.Errorf("semantic: save: %w", err)
	}
	defer vf.Close()

	hdr := []uint32{snapshotMagic, snapshotVersion, uint32(len(entries)), uint32(dims)}
	if err := binary.Write(vf, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("semantic: save header: %w", err)
	}
	for _, e := range entries {
		if err := binary.Write(vf, binary.LittleEndian, e.Embedding); err != nil {
			return fmt.Errorf("semantic: save vectors: %w", err)
		}
	}
	if err := vf.Close(); err != nil {
		return fmt.Errorf("semantic: save: %w", err)
	}

	meta, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("semantic: save meta: %w", err)
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return fmt.Errorf("semantic: save meta: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save, replacing the index contents.
// If the two artifacts disagree on entry count the snapshot is rejected:
// position i in the metadata must be position i in the vector blob.
func (f *FlatIndex) Load(base string) error {
	vecPath, metaPath := base+".vec", base+".meta.json"

	raw, err := os.ReadFile(vecPath)
	if err != nil {
		return fmt.Errorf("semantic: load: %w", err)
	}
	if len(raw) < 16 {
		return fmt.Errorf("semantic: load: snapshot %s truncated", vecPath)
	}
	magic := binary.LittleEndian.Uint32(raw[0:4])
	version := binary.LittleEndian.Uint32(raw[4:8])
	count := int(binary.LittleEndian.Uint32(raw[8:12]))
	dims := int(binary.LittleEndian.Uint32(raw[12:16]))
	if magic != snapshotMagic {
		return fmt.Errorf("semantic: load: %s is not a vector snapshot", vecPath)
	}
	if version != snapshotVersion {
		return fmt.Errorf("semantic: load: snapshot version %d, want %d", version, snapshotVersion)
	}
	body := raw[16:]
	if len(body) != count*dims*4 {
		return fmt.Errorf("semantic: load: snapshot %s has %d vector bytes, want %d", vecPath, len(body), count*dims*4)
	}

	metaRaw, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("semantic: load meta: %w", err)
	}
	var entries []VectorEntry
	if err := json.Unmarshal(metaRaw, &entries); err != nil {
		return fmt.Errorf("semantic: load meta: %w", err)
	}
	if len(entries) != count {
		return fmt.Errorf("semantic: load: %d metadata entries for %d vectors", len(entries), count)
	}

	byKey := make(map[string]int, count)
	kept := make([]VectorEntry, 0, count)
	for i := range entries {
		vec := make([]float32, dims)
		off := i * dims * 4
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off+j*4:]))
		}
		e := entries[i]
		e.Embedding = vec
		if e.ItemID == "" || e.TenantID == "" {
			slog.Warn("dropping snapshot entry with missing identity", "position", i)
			continue
		}
		byKey[entryKey(e.TenantID, e.ItemID)] = len(kept)
		kept = append(kept, e)
	}

	f.mu.Lock()
	f.entries = kept
	f.byKey = byKey
	f.dims = dims
	f.mu.Unlock()
	return nil
}
