// Package search implements hybrid item search: semantic first, scored
// lexical matching as the fallback.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/webcat/search-service/internal/domain"
	"github.com/webcat/search-service/internal/logger"
	"github.com/webcat/search-service/internal/metrics"
)

// Service answers search queries against the vector index and the catalog.
type Service struct {
	index        VectorIndex
	catalog      Catalog
	embed        Embedder
	defaultLimit int
	maxLimit     int
}

// New creates a search service. Non-positive limits select 20/100.
func New(index VectorIndex, catalog Catalog, embed Embedder, defaultLimit, maxLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Service{
		index:        index,
		catalog:      catalog,
		embed:        embed,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Page is one page of merged search results.
type Page struct {
	Results []domain.SearchResult `json:"results"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
	Pages   int                   `json:"pages"`
	Query   string                `json:"query"`
}

// Search runs the hybrid query. Semantic results lead; the lexical query
// tops them up only when the semantic side returns fewer than half of limit.
// Pagination is applied to the full merged list so pages stay consistent.
func (s *Service) Search(ctx context.Context, query string, page, limit int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, domain.ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	semantic, err := s.semantic(ctx, query, limit)
	if err != nil {
		return Page{}, err
	}

	// 2*len < limit is the real-number half comparison; odd limits still
	// trigger the top-up (2 hits out of 5 is below 2.5).
	fellBack := 2*len(semantic) < limit
	var lexical []domain.SearchResult
	if fellBack {
		lexical, err = s.catalog.TextSearch(ctx, query, limit-len(semantic))
		if err != nil {
			return Page{}, fmt.Errorf("lexical search: %w", err)
		}
	}

	// The merge runs even without lexical results so equal-score ties always
	// break the same way.
	merged := mergeResults(semantic, lexical)
	path := "semantic"
	switch {
	case fellBack && len(semantic) == 0:
		path = "lexical"
	case len(merged) > len(semantic):
		path = "hybrid"
	}
	metrics.SearchFallbackTotal.WithLabelValues(path).Inc()

	total := len(merged)
	pages := (total + limit - 1) / limit
	return Page{
		Results: paginate(merged, page, limit),
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		Query:   query,
	}, nil
}

// semantic embeds the query and hydrates the KNN matches from the catalog.
// Embedding and vector index failures degrade to an empty semantic side so
// the lexical fallback can still answer; catalog failures propagate.
func (s *Service) semantic(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	log := logger.FromContext(ctx)

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		log.Warn("query embedding failed, using lexical search only", zap.Error(err))
		return nil, nil
	}

	matches, err := s.index.Query(ctx, emb.Embedding, 2*limit)
	if err != nil {
		log.Warn("vector search failed, using lexical search only", zap.Error(err))
		return nil, nil
	}
	if len(matches) == 0 {
		return nil, nil
	}

	scores := make(map[int64]float64, len(matches))
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		scores[m.ID] = m.Score
		ids = append(ids, m.ID)
	}

	rows, err := s.catalog.GetAvailableByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate semantic results: %w", err)
	}
	for i := range rows {
		rows[i].Score = scores[rows[i].ItemID]
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	return rows, nil
}
