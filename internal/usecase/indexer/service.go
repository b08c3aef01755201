// Package indexer keeps the vector index in step with the item catalog.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/webcat/search-service/internal/domain"
	"github.com/webcat/search-service/internal/logger"
)

// Service maintains item embeddings, one per Available item.
type Service struct {
	catalog  Catalog
	index    VectorIndex
	embedder Embedder

	batchSize  int
	batchDelay int // milliseconds between reindex batches
}

// New creates an index maintainer. batchSize and batchDelayMs tune ReindexAll;
// non-positive values select the defaults.
func New(catalog Catalog, index VectorIndex, embedder Embedder, batchSize, batchDelayMs int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchDelayMs < 0 {
		batchDelayMs = defaultBatchDelayMs
	}
	return &Service{
		catalog:    catalog,
		index:      index,
		embedder:   embedder,
		batchSize:  batchSize,
		batchDelay: batchDelayMs,
	}
}

// BuildSearchableText combines title, description, and tags into the text
// that gets embedded. Empty parts are skipped.
func BuildSearchableText(item domain.IndexableItem) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{item.Title, item.Description, item.Tags} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// UpsertItemEmbedding refreshes the embedding for one item. Items that are
// absent, not Available, or have no searchable text are silently skipped;
// indexed reports whether a vector was actually written.
func (s *Service) UpsertItemEmbedding(ctx context.Context, itemID int64) (indexed bool, err error) {
	item, err := s.catalog.GetIndexableItem(ctx, itemID)
	if errors.Is(err, domain.ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load item %d: %w", itemID, err)
	}

	text := BuildSearchableText(item)
	if text == "" {
		return false, nil
	}

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed item %d: %w", itemID, err)
	}

	rec := domain.EmbeddingRecord{
		ID:     item.ID,
		Vector: result.Embedding,
		Metadata: domain.EmbeddingMetadata{
			Title:          item.Title,
			Description:    item.Description,
			Tags:           item.Tags,
			SearchableText: text,
		},
	}
	if err := s.index.Upsert(ctx, &rec); err != nil {
		return false, fmt.Errorf("store embedding for item %d: %w", itemID, err)
	}
	return true, nil
}

// DeleteItemEmbedding removes an item's vector. Removing an item that was
// never indexed is not an error.
func (s *Service) DeleteItemEmbedding(ctx context.Context, itemID int64) error {
	if err := s.index.DeleteByIDs(ctx, []int64{itemID}); err != nil {
		return fmt.Errorf("delete embedding for item %d: %w", itemID, err)
	}
	return nil
}

// UpdateItemEmbeddings refreshes the given items one by one. A failing item
// is logged and skipped so the rest of the list still gets updated. Returns
// how many items were actually re-indexed.
func (s *Service) UpdateItemEmbeddings(ctx context.Context, itemIDs []int64) (int, error) {
	// A nil list means the caller never sent one. An explicit empty list is
	// a valid request that updates nothing.
	if itemIDs == nil {
		return 0, domain.ErrInvalidItemIDs
	}

	log := logger.FromContext(ctx)
	updated := 0
	for _, id := range itemIDs {
		indexed, err := s.UpsertItemEmbedding(ctx, id)
		if err != nil {
			log.Warn("embedding update failed",
				zap.Int64("item_id", id),
				zap.Error(err))
			continue
		}
		if indexed {
			updated++
		}
	}
	return updated, nil
}
