package query

import (
	"context"

	"github.com/kailas-cloud/contextq/internal/domain/document"
	"github.com/kailas-cloud/contextq/internal/domain/search/filter"
	"github.com/kailas-cloud/contextq/internal/usecase/template"
)

// Retriever fetches ranked chunks for an effective query.
type Retriever interface {
	Retrieve(ctx context.Context, effectiveQuery string, k int) ([]document.Scored, error)
	RetrieveWithin(ctx context.Context, effectiveQuery string, k int, scope filter.Expression) ([]document.Scored, error)
}

// TemplateStore layers policy fragments into a prompt template.
type TemplateStore interface {
	Compose(account, role, user string) (template.Template, error)
}

// PromptComposer renders the final prompt.
type PromptComposer interface {
	Compose(tmpl, contextText, question string) (string, error)
}

// Generator turns a prompt into a response.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ConsistencyChecker flags responses not grounded in the context block.
type ConsistencyChecker interface {
	Check(response, contextText string) bool
}
