package contextq

import (
	"context"

	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
)

// Metadata keys the access filter and source list read.
const (
	MetaID      = "id"
	MetaRole    = "role"
	MetaAccount = "account"
)

// Question is one query asked on behalf of a user.
// All four fields are required; Role, User and Account must be plain
// identifiers ([A-Za-z0-9_.@-]) since they name template directories.
type Question struct {
	Text    string
	Role    string
	User    string
	Account string
}

// Chunk is a search hit returned by an Index.
type Chunk struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// Index is a nearest-neighbour search supplied by the caller.
// Results must be ranked, most similar first.
type Index interface {
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Generator turns a prompt into a response.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answer is the outcome of Ask.
type Answer struct {
	Text string
	// Sources holds the id of each chunk used as context; nil where a chunk had no id.
	Sources                []*string
	NoDocuments            bool
	EmptyReason            string
	HallucinationSuspected bool
}

// Format renders "Response: <text>\nSources: [...]", or the fixed
// no-documents message.
func (a Answer) Format() string {
	return a.toResult().Format()
}

func answerFromResult(r domquery.Result) Answer {
	return Answer{
		Text:                   r.Answer,
		Sources:                r.Sources,
		NoDocuments:            r.Outcome == domquery.OutcomeNoDocuments,
		EmptyReason:            string(r.EmptyReason),
		HallucinationSuspected: r.HallucinationSuspected,
	}
}

func (a Answer) toResult() domquery.Result {
	if a.NoDocuments {
		return domquery.NoDocuments(domquery.EmptyReason(a.EmptyReason))
	}
	return domquery.Result{
		Outcome:                domquery.OutcomeAnswered,
		Answer:                 a.Text,
		Sources:                a.Sources,
		HallucinationSuspected: a.HallucinationSuspected,
	}
}
