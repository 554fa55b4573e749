package query

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/contextq/internal/domain/document"
	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
	"github.com/kailas-cloud/contextq/internal/usecase/access"
	"github.com/kailas-cloud/contextq/internal/usecase/retrieval"
)

// Strategy names accepted in configuration.
const (
	StrategyAugment = "augment"
	StrategyFilter  = "filter"
)

// Strategy decides how the caller's role and account narrow retrieval.
// It returns what the index produced and what survived narrowing, so the
// caller can tell an empty index from an over-restrictive filter.
type Strategy interface {
	Name() string
	Select(
		ctx context.Context, r Retriever, effectiveQuery string, qc domquery.Context,
	) (retrieved, kept []document.Scored, err error)
}

// NewStrategy resolves a strategy by name. Empty means StrategyFilter.
func NewStrategy(name string, pushdown bool) (Strategy, error) {
	switch name {
	case "", StrategyFilter:
		return NewFilterStrategy(pushdown), nil
	case StrategyAugment:
		return AugmentStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown retrieval strategy %q", name)
	}
}

// AugmentStrategy relies on the identity folded into the query text only;
// every retrieved chunk is kept.
type AugmentStrategy struct{}

// Name returns StrategyAugment.
func (AugmentStrategy) Name() string { return StrategyAugment }

// Select retrieves and keeps everything.
func (AugmentStrategy) Select(
	ctx context.Context, r Retriever, effectiveQuery string, _ domquery.Context,
) ([]document.Scored, []document.Scored, error) {
	retrieved, err := r.Retrieve(ctx, effectiveQuery, retrieval.TopK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve: %w", err)
	}
	return retrieved, retrieved, nil
}

// FilterStrategy keeps chunks whose metadata matches the caller's role or account.
// With pushdown the same expression is also sent to the index so the top-k is
// drawn from matching chunks only.
type FilterStrategy struct {
	pushdown bool
}

// NewFilterStrategy creates a FilterStrategy.
func NewFilterStrategy(pushdown bool) *FilterStrategy {
	return &FilterStrategy{pushdown: pushdown}
}

// Name returns StrategyFilter.
func (s *FilterStrategy) Name() string { return StrategyFilter }

// Pushdown reports whether the expression is sent to the index.
func (s *FilterStrategy) Pushdown() bool { return s.pushdown }

// Select retrieves then applies the role-or-account filter in memory.
// The in-memory pass also runs after pushdown. When a pushed-down search comes
// back empty, retrieved holds at most one unscoped hit so the caller can report
// empty_after_filter rather than empty_retrieval.
func (s *FilterStrategy) Select(
	ctx context.Context, r Retriever, effectiveQuery string, qc domquery.Context,
) ([]document.Scored, []document.Scored, error) {
	expr, err := access.Expression(qc.Role, qc.Account)
	if err != nil {
		return nil, nil, fmt.Errorf("access scope: %w", err)
	}

	if !s.pushdown {
		retrieved, err := r.Retrieve(ctx, effectiveQuery, retrieval.TopK)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieve: %w", err)
		}
		return retrieved, access.Apply(retrieved, expr), nil
	}

	retrieved, err := r.RetrieveWithin(ctx, effectiveQuery, retrieval.TopK, expr)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(retrieved) > 0 {
		return retrieved, access.Apply(retrieved, expr), nil
	}

	// Nothing matched the pushed-down scope. One unscoped hit tells an empty
	// index apart from a scope that excluded everything.
	unscoped, err := r.Retrieve(ctx, effectiveQuery, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve unscoped: %w", err)
	}
	return unscoped, []document.Scored{}, nil
}
