// Package embedding normalizes raw text before it reaches an embedding
// provider and validates what comes back.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/webcat/search-service/internal/domain"
)

// DefaultMaxChars caps the text sent to the provider. Longer inputs are
// truncated, not rejected.
const DefaultMaxChars = 2000

// Generator is the outermost embedder. It trims and collapses whitespace,
// enforces the input length cap, and rejects empty text and empty vectors.
type Generator struct {
	inner    domain.Embedder
	maxChars int
}

// NewGenerator wraps inner with input normalization. maxChars <= 0 selects
// DefaultMaxChars.
func NewGenerator(inner domain.Embedder, maxChars int) *Generator {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Generator{inner: inner, maxChars: maxChars}
}

// Embed normalizes text and delegates to the wrapped embedder.
func (g *Generator) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return domain.EmbeddingResult{}, domain.ErrEmptyText
	}
	normalized = truncateRunes(normalized, g.maxChars)

	result, err := g.inner.Embed(ctx, normalized)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if len(result.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("provider returned empty vector: %w", domain.ErrMalformedResponse)
	}
	return result, nil
}

// Normalize trims the text and collapses any whitespace run to one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncateRunes caps s at limit characters without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
