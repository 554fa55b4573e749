package domain

import "errors"

var (
	// ErrInvalidQuery signals a malformed query context (missing question, role, user or account).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidIdentifier signals an account/role/user value that is not a safe path segment.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrTemplateComposition signals a prompt template without the required placeholders.
	ErrTemplateComposition = errors.New("template composition failed")
	// ErrGeneratorFailure signals a failed or timed out language model call.
	ErrGeneratorFailure = errors.New("generator failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index that could not be queried.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
