package domain

import "errors"

// Policy refusals (out-of-domain, no evidence, coverage failure, invalid
// selection) are returned as refuse Decisions, never as errors. The sentinels
// below cover the error-class failures only.
var (
	// ErrInvariantViolation signals a Decision that breaks the output contract.
	// It indicates a defect in an upstream pipeline stage, not a user-facing
	// condition.
	ErrInvariantViolation = errors.New("decision invariant violation")
	// ErrInvalidConfig signals malformed engine configuration.
	ErrInvalidConfig = errors.New("invalid engine config")
	// ErrRateLimited signals a rate limit hit on an external provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexNotFound signals a missing vector index.
	ErrIndexNotFound = errors.New("vector index not found")
)
