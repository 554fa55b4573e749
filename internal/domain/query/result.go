package query

import "strings"

// Outcome classifies how a query finished.
type Outcome string

// Query outcomes.
const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeNoDocuments Outcome = "no_documents"
)

// EmptyReason says why no documents were available.
type EmptyReason string

// Empty reasons. Both produce the same user-visible message.
const (
	EmptyRetrieval   EmptyReason = "empty_retrieval"
	EmptyAfterFilter EmptyReason = "empty_after_filter"
)

// NoDocumentsMessage is rendered when a query has nothing to answer from.
const NoDocumentsMessage = "No valid documents available."

// Result is the structured outcome of a query.
type Result struct {
	Outcome     Outcome
	EmptyReason EmptyReason
	Answer      string
	// Sources holds the "id" metadata of each context document, in order; nil where absent.
	Sources                []*string
	HallucinationSuspected bool
}

// NoDocuments builds the result for a query with no usable context.
func NoDocuments(reason EmptyReason) Result {
	return Result{Outcome: OutcomeNoDocuments, EmptyReason: reason}
}

// Format renders the text contract:
//
//	Response: <answer>
//	Sources: ['doc1', None]
func (r Result) Format() string {
	if r.Outcome == OutcomeNoDocuments {
		return NoDocumentsMessage
	}
	return "Response: " + r.Answer + "\nSources: " + FormatSources(r.Sources)
}

// FormatSources renders a list of optional ids as a bracketed list with quoted
// ids and None for missing ones.
func FormatSources(sources []*string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range sources {
		if i > 0 {
			b.WriteString(", ")
		}
		if s == nil {
			b.WriteString("None")
			continue
		}
		b.WriteString(quote(*s))
	}
	b.WriteByte(']')
	return b.String()
}

// quote uses single quotes unless the value contains a single quote and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == q:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}
