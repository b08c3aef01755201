package search

import (
	"sort"

	"github.com/webcat/search-service/internal/domain"
)

// mergeResults deduplicates by item id with the semantic side winning, then
// orders by score descending, newest item first on ties.
func mergeResults(semantic, lexical []domain.SearchResult) []domain.SearchResult {
	seen := make(map[int64]struct{}, len(semantic)+len(lexical))
	merged := make([]domain.SearchResult, 0, len(semantic)+len(lexical))

	for _, r := range semantic {
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range lexical {
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ItemID > merged[j].ItemID
	})
	return merged
}

// paginate slices one page out of the full merged list. Pages past the end
// come back empty, not as an error.
func paginate(results []domain.SearchResult, page, limit int) []domain.SearchResult {
	offset := (page - 1) * limit
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
