// Package embed turns text into fixed-dimension embedding vectors via a
// remote embeddings API, with batching, retry, rate limiting, and an
// optional bounded in-memory cache.
package embed

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors.
var (
	// ErrEmptyText rejects empty/whitespace-only input before any I/O.
	// A zero vector is never silently returned.
	ErrEmptyText = errors.New("embed: text is empty")
)

// Provider produces embedding vectors for text.
type Provider interface {
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts embeds a batch, preserving input order. A failure in any
	// chunk fails the whole call; there is no partial success.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// validateTexts rejects empty or whitespace-only entries.
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyText
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return ErrEmptyText
		}
	}
	return nil
}
