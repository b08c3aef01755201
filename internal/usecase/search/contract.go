package search

import (
	"context"

	"github.com/webcat/search-service/internal/domain"
)

// VectorIndex runs KNN queries over item embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]domain.VectorMatch, error)
}

// Catalog hydrates result rows and runs the scored lexical query.
type Catalog interface {
	GetAvailableByIDs(ctx context.Context, itemIDs []int64) ([]domain.SearchResult, error)
	TextSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
