package contextq

import "github.com/kailas-cloud/contextq/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidIdentifier      = domain.ErrInvalidIdentifier
	ErrTemplateComposition    = domain.ErrTemplateComposition
	ErrGeneratorFailure       = domain.ErrGeneratorFailure
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
)
