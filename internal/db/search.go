package db

import "github.com/kailas-cloud/contextq/internal/domain/search/filter"

// DefaultVectorField is the FT schema field holding embeddings.
const DefaultVectorField = "vector"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // DefaultVectorField when empty
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
