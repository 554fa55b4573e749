package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/contextq/internal/db"
	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/document"
	"github.com/kailas-cloud/contextq/internal/domain/search/filter"
)

// Defaults for the hash layout written by the ingestion pipeline.
const (
	DefaultIndexName    = "knowledge-base:idx"
	DefaultContentField = "content"
)

// DefaultMetadataFields are returned alongside content for every hit.
var DefaultMetadataFields = []string{document.MetaID, document.MetaRole, document.MetaAccount}

// store is the consumer interface for search operations (ISP).
type store interface {
	Ping(ctx context.Context) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config describes the FT index layout.
type Config struct {
	IndexName      string
	VectorField    string
	ContentField   string
	MetadataFields []string
}

// Repo is a vector index backed by Redis FT.SEARCH. It embeds the query text
// itself and supports pre-filtering by tag fields.
type Repo struct {
	store store
	embed domain.Embedder
	cfg   Config
}

// New creates a search repository. Zero Config fields take the defaults.
func New(s store, embed domain.Embedder, cfg Config) *Repo {
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.VectorField == "" {
		cfg.VectorField = db.DefaultVectorField
	}
	if cfg.ContentField == "" {
		cfg.ContentField = DefaultContentField
	}
	if len(cfg.MetadataFields) == 0 {
		cfg.MetadataFields = DefaultMetadataFields
	}
	return &Repo{store: s, embed: embed, cfg: cfg}
}

// Ping checks the underlying store.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// SimilaritySearch returns the k chunks nearest to query.
func (r *Repo) SimilaritySearch(ctx context.Context, query string, k int) ([]document.Scored, error) {
	return r.search(ctx, query, k, filter.Expression{})
}

// SimilaritySearchWithin restricts candidates to chunks matching scope before ranking.
func (r *Repo) SimilaritySearchWithin(
	ctx context.Context, query string, k int, scope filter.Expression,
) ([]document.Scored, error) {
	return r.search(ctx, query, k, scope)
}

func (r *Repo) search(
	ctx context.Context, query string, k int, scope filter.Expression,
) ([]document.Scored, error) {
	emb, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	returnFields := make([]string, 0, len(r.cfg.MetadataFields)+1)
	returnFields = append(returnFields, r.cfg.ContentField)
	returnFields = append(returnFields, r.cfg.MetadataFields...)

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  r.cfg.VectorField,
		Filters:      scope,
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}

	return r.toScored(sr), nil
}

func (r *Repo) toScored(sr *db.SearchResult) []document.Scored {
	if sr == nil || len(sr.Entries) == 0 {
		return []document.Scored{}
	}

	out := make([]document.Scored, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		var content string
		meta := make(map[string]string, len(entry.Fields))
		for k, v := range entry.Fields {
			if k == r.cfg.ContentField {
				content = v
				continue
			}
			meta[k] = v
		}
		out = append(out, document.Scored{
			Document: document.New(content, meta),
			Score:    entry.Score,
		})
	}
	return out
}
