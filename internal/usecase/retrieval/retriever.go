package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/document"
	"github.com/kailas-cloud/contextq/internal/domain/search/filter"
)

// TopK is the number of chunks retrieved per query.
const TopK = 5

// Index is a nearest-neighbour search over embedded document chunks.
// Results come back ranked, most similar first.
type Index interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]document.Scored, error)
}

// FilteredIndex is an Index that can restrict candidates by metadata before ranking.
type FilteredIndex interface {
	Index
	SimilaritySearchWithin(ctx context.Context, query string, k int, scope filter.Expression) ([]document.Scored, error)
}

// EffectiveQuery folds the identity into the search text so that embeddings
// favour role- and account-specific chunks.
func EffectiveQuery(question, role, account string) string {
	return fmt.Sprintf("Role: %s, Account: %s, Query: %s", role, account, question)
}

// Retriever fetches the top-k chunks for an effective query.
type Retriever struct {
	index Index
}

// New creates a Retriever over index.
func New(index Index) *Retriever {
	return &Retriever{index: index}
}

// Retrieve returns at most k ranked results. An empty index yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, effectiveQuery string, k int) ([]document.Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidQuery)
	}
	results, err := r.index.SimilaritySearch(ctx, effectiveQuery, k)
	if err != nil {
		return nil, wrapIndexErr(err)
	}
	return truncate(results, k), nil
}

// RetrieveWithin is Retrieve with scope pushed down to indexes that support it.
// Indexes without pre-filtering ignore the scope.
func (r *Retriever) RetrieveWithin(
	ctx context.Context, effectiveQuery string, k int, scope filter.Expression,
) ([]document.Scored, error) {
	fi, ok := r.index.(FilteredIndex)
	if !ok || scope.IsEmpty() {
		return r.Retrieve(ctx, effectiveQuery, k)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidQuery)
	}
	results, err := fi.SimilaritySearchWithin(ctx, effectiveQuery, k, scope)
	if err != nil {
		return nil, wrapIndexErr(err)
	}
	return truncate(results, k), nil
}

// SupportsPushdown reports whether the underlying index pre-filters.
func (r *Retriever) SupportsPushdown() bool {
	_, ok := r.index.(FilteredIndex)
	return ok
}

func wrapIndexErr(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProviderError) || errors.Is(err, domain.ErrIndexUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("similarity search: %w", err)
	}
	return fmt.Errorf("similarity search: %w: %w", domain.ErrIndexUnavailable, err)
}

func truncate(results []document.Scored, k int) []document.Scored {
	if results == nil {
		return []document.Scored{}
	}
	if len(results) > k {
		return results[:k]
	}
	return results
}
