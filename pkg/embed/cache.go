package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a Provider with a bounded in-memory LRU cache keyed by a
// hash of the text. Vectors stored in the cache are never mutated by
// callers; Search paths copy before normalizing.
type Cached struct {
	inner Provider
	lru   *lru.Cache[string, []float32]
}

// NewCached wraps provider with an LRU of the given capacity.
func NewCached(provider Provider, capacity int) (*Cached, error) {
	c, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("embed: cache: %w", err)
	}
	return &Cached{inner: provider, lru: c}, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbedText implements Provider.
func (c *Cached) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := validateTexts([]string{text}); err != nil {
		return nil, err
	}
	key := cacheKey(text)
	if vec, ok := c.lru.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, vec)
	return vec, nil
}

// EmbedTexts implements Provider. Only cache misses are sent upstream; the
// result preserves input order.
func (c *Cached) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := c.lru.Get(cacheKey(t)); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.lru.Add(cacheKey(texts[i]), vecs[j])
	}
	return out, nil
}

// Len reports how many vectors the cache currently holds.
func (c *Cached) Len() int { return c.lru.Len() }
