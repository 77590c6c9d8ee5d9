package evidex

import "github.com/kailas-cloud/evidex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidConfig          = domain.ErrInvalidConfig
	ErrInvariantViolation     = domain.ErrInvariantViolation
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrIndexNotFound          = domain.ErrIndexNotFound
)
