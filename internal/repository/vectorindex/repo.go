// Package vectorindex stores item embeddings as Redis hashes under an FT
// index and exposes nearest-neighbor queries over them.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/webcat/search-service/internal/db"
	"github.com/webcat/search-service/internal/db/redis"
	"github.com/webcat/search-service/internal/domain"
)

// store is the consumer interface for embedding records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds HNSW build parameters for the embedding index.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the vector index contract of the indexer and search use cases.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
	vectorDim int
	hnsw      HNSWConfig
}

// Config holds vector index settings.
type Config struct {
	IndexName string
	KeyPrefix string
	VectorDim int
	HNSW      HNSWConfig
}

// New creates an embedding index repository.
func New(s store, cfg Config) *Repo {
	return &Repo{
		store:     s,
		indexName: cfg.IndexName,
		keyPrefix: cfg.KeyPrefix,
		vectorDim: cfg.VectorDim,
		hnsw:      cfg.HNSW,
	}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.indexName,
		Prefixes: []string{r.keyPrefix},
		Fields: []db.IndexField{
			{Name: "title", Type: db.IndexFieldText},
			{Name: "tags", Type: db.IndexFieldTag, TagSeparator: ","},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// Upsert writes an embedding record keyed by item id. Repeated upserts with
// the same record overwrite in place.
func (r *Repo) Upsert(ctx context.Context, rec *domain.EmbeddingRecord) error {
	if len(rec.Vector) == 0 {
		return fmt.Errorf("embedding record %d has no vector", rec.ID)
	}
	if r.vectorDim > 0 && len(rec.Vector) != r.vectorDim {
		return fmt.Errorf("embedding record %d: dimension %d, index expects %d",
			rec.ID, len(rec.Vector), r.vectorDim)
	}

	fields := map[string]string{
		"vector":          redis.VectorToBlob(rec.Vector),
		"title":           rec.Metadata.Title,
		"description":     rec.Metadata.Description,
		"tags":            rec.Metadata.Tags,
		"searchable_text": truncate(rec.Metadata.SearchableText, domain.MetadataTextLimit),
	}

	if err := r.store.HSet(ctx, r.key(rec.ID), fields); err != nil {
		return fmt.Errorf("upsert embedding %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteByIDs removes embedding records; absent ids are ignored.
func (r *Repo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

// Query returns the topK nearest neighbors of the given vector with
// similarity scores, ordered most similar first.
func (r *Repo) Query(ctx context.Context, vector []float32, topK int) ([]domain.VectorMatch, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	matches := make([]domain.VectorMatch, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id, err := r.itemID(e.Key)
		if err != nil {
			continue // foreign key under the prefix, skip
		}
		matches = append(matches, domain.VectorMatch{ID: id, Score: e.Score})
	}

	return matches, nil
}

func (r *Repo) key(id int64) string {
	return r.keyPrefix + strconv.FormatInt(id, 10)
}

func (r *Repo) itemID(key string) (int64, error) {
	raw := strings.TrimPrefix(key, r.keyPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse item id from key %q: %w", key, err)
	}
	return id, nil
}

// truncate caps s at limit characters without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
