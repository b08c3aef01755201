package indexer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webcat/search-service/internal/domain"
	"github.com/webcat/search-service/internal/logger"
	"github.com/webcat/search-service/internal/metrics"
)

const (
	defaultBatchSize    = 10
	defaultBatchDelayMs = 100
	progressLogEvery    = 50
)

// Report summarizes a bulk reindex run. Items with empty searchable text
// are skipped and count toward neither Processed nor Errors.
type Report struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Total     int `json:"total"`
}

// ReindexAll rebuilds embeddings for every Available item. Items are
// embedded in fixed-size concurrent batches with a fixed delay between
// batches to stay under provider rate limits. Per-item failures are logged
// and counted; only listing failure or context cancellation aborts the run.
func (s *Service) ReindexAll(ctx context.Context) (Report, error) {
	log := logger.FromContext(ctx)

	items, err := s.catalog.ListIndexableItems(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list items for reindex: %w", err)
	}

	log.Info("reindex started",
		zap.Int("total_items", len(items)),
		zap.Int("batch_size", s.batchSize))

	var processed, errored atomic.Int64
	delay := time.Duration(s.batchDelay) * time.Millisecond

	for start := 0; start < len(items); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return s.report(len(items), &processed, &errored), err
		}

		end := min(start+s.batchSize, len(items))
		batch := items[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range batch {
			item := item
			g.Go(func() error {
				indexed, err := s.reindexOne(gctx, item)
				switch {
				case err != nil:
					errored.Add(1)
					metrics.ReindexItemsTotal.WithLabelValues("error").Inc()
					log.Warn("reindex item failed",
						zap.Int64("item_id", item.ID),
						zap.Error(err))
				case indexed:
					n := processed.Add(1)
					metrics.ReindexItemsTotal.WithLabelValues("processed").Inc()
					if n%progressLogEvery == 0 {
						log.Info("reindex progress",
							zap.Int64("processed", n),
							zap.Int("total", len(items)))
					}
				default:
					metrics.ReindexItemsTotal.WithLabelValues("skipped").Inc()
				}
				return nil
			})
		}
		_ = g.Wait()

		if end < len(items) && delay > 0 {
			select {
			case <-ctx.Done():
				return s.report(len(items), &processed, &errored), ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	rep := s.report(len(items), &processed, &errored)
	log.Info("reindex finished",
		zap.Int("processed", rep.Processed),
		zap.Int("errors", rep.Errors),
		zap.Int("total", rep.Total))
	return rep, nil
}

// reindexOne embeds one already-loaded item, mirroring UpsertItemEmbedding
// without the catalog round trip.
func (s *Service) reindexOne(ctx context.Context, item domain.IndexableItem) (bool, error) {
	text := BuildSearchableText(item)
	if text == "" {
		return false, nil
	}

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed item %d: %w", item.ID, err)
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
		return false, fmt.Errorf("store embedding for item %d: %w", item.ID, err)
	}
	return true, nil
}

func (s *Service) report(total int, processed, errored *atomic.Int64) Report {
	return Report{
		Processed: int(processed.Load()),
		Errors:    int(errored.Load()),
		Total:     total,
	}
}
