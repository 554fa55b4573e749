// Package access narrows retrieved chunks to those relevant to the caller's
// role or account. It is a relevance filter, not a security boundary.
package access

import (
	"fmt"

	"github.com/kailas-cloud/contextq/internal/domain/document"
	"github.com/kailas-cloud/contextq/internal/domain/search/filter"
)

// Expression builds the access scope: metadata role equals role OR metadata
// account equals account.
func Expression(role, account string) (filter.Expression, error) {
	byRole, err := filter.NewMatch(document.MetaRole, role)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("role condition: %w", err)
	}
	byAccount, err := filter.NewMatch(document.MetaAccount, account)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("account condition: %w", err)
	}
	expr, err := filter.NewExpression(nil, []filter.Condition{byRole, byAccount}, nil)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("access expression: %w", err)
	}
	return expr, nil
}

// Filter keeps the results whose metadata matches role or account, in their
// original order. Results without role/account metadata are dropped.
func Filter(results []document.Scored, role, account string) []document.Scored {
	expr, err := Expression(role, account)
	if err != nil {
		// an empty identifier can match nothing
		return []document.Scored{}
	}
	return Apply(results, expr)
}

// Apply keeps the results matching expr, preserving order.
func Apply(results []document.Scored, expr filter.Expression) []document.Scored {
	kept := make([]document.Scored, 0, len(results))
	for _, r := range results {
		if expr.Matches(r.Document.Metadata()) {
			kept = append(kept, r)
		}
	}
	return kept
}
