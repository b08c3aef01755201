package health

import "context"

// CatalogPinger checks relational catalog availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// VectorPinger checks vector store availability.
type VectorPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
