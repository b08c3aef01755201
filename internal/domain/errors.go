package domain

import "errors"

var (
	// ErrEmptyQuery signals a missing or whitespace-only search query.
	ErrEmptyQuery = errors.New("search query is required")
	// ErrEmptyText signals text that is empty after normalization.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrInvalidItemIDs signals a missing or malformed item id list.
	ErrInvalidItemIDs = errors.New("item ids array is required")
	// ErrItemNotFound signals a missing item row.
	ErrItemNotFound = errors.New("item not found")
	// ErrMalformedResponse signals an embedding provider response that could not be parsed.
	ErrMalformedResponse = errors.New("malformed embedding response")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSearchBackendUnavailable signals that a search backend could not be reached.
	// Distinct from "no matches": zero results are never reported through this error.
	ErrSearchBackendUnavailable = errors.New("search backend unavailable")
)
