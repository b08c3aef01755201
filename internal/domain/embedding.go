package domain

import "context"

// MetadataTextLimit bounds the searchable text stored as index metadata.
const MetadataTextLimit = 1000

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingMetadata is the display payload stored alongside a vector.
type EmbeddingMetadata struct {
	Title          string
	Description    string
	Tags           string
	SearchableText string
}

// EmbeddingRecord is one vector index entry, keyed by item id.
// A record exists iff the item is Available and has been indexed since
// its last content change; the relational store stays the system of record.
type EmbeddingRecord struct {
	ID       int64
	Vector   []float32
	Metadata EmbeddingMetadata
}

// VectorMatch is one nearest-neighbor hit: item id plus similarity score.
type VectorMatch struct {
	ID    int64
	Score float64
}
