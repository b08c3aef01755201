package indexer

import (
	"context"

	"github.com/webcat/search-service/internal/domain"
)

// Catalog reads indexable items from the relational store.
type Catalog interface {
	GetIndexableItem(ctx context.Context, itemID int64) (domain.IndexableItem, error)
	ListIndexableItems(ctx context.Context) ([]domain.IndexableItem, error)
}

// VectorIndex persists item embeddings.
type VectorIndex interface {
	Upsert(ctx context.Context, rec *domain.EmbeddingRecord) error
	DeleteByIDs(ctx context.Context, itemIDs []int64) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
