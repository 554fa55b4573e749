// Package pgvector serves similarity search from a Postgres table with a
// pgvector embedding column.
package pgvector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/document"
	"github.com/kailas-cloud/contextq/internal/domain/search/filter"
)

// DefaultTable is the chunk table written by the ingestion job:
//
//	CREATE TABLE chunks (id text PRIMARY KEY, content text, metadata jsonb, embedding vector(N))
const DefaultTable = "chunks"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// querier is the consumer interface over a pgx pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Index ranks chunks by cosine distance (`<=>`).
type Index struct {
	db    querier
	embed domain.Embedder
	table string
}

// Connect opens a pool for dsn and returns an index over table.
func Connect(ctx context.Context, dsn, table string, embed domain.Embedder) (*Index, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: connect postgres: %w", domain.ErrIndexUnavailable, err)
	}
	idx, err := New(pool, table, embed)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return idx, pool, nil
}

// New creates an index over an existing table.
func New(db querier, table string, embed domain.Embedder) (*Index, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Index{db: db, embed: embed, table: table}, nil
}

// Ping checks database connectivity.
func (i *Index) Ping(ctx context.Context) error {
	if err := i.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// SimilaritySearch returns the k nearest chunks.
func (i *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]document.Scored, error) {
	return i.search(ctx, query, k, filter.Expression{})
}

// SimilaritySearchWithin applies scope as a WHERE clause on the metadata column.
func (i *Index) SimilaritySearchWithin(
	ctx context.Context, query string, k int, scope filter.Expression,
) ([]document.Scored, error) {
	return i.search(ctx, query, k, scope)
}

func (i *Index) search(
	ctx context.Context, query string, k int, scope filter.Expression,
) ([]document.Scored, error) {
	emb, err := i.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	sql, args := buildQuery(i.table, pgvector.NewVector(emb.Embedding), k, scope)
	rows, err := i.db.Query(ctx, sql, args...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrIndexUnavailable, i.table, err)
	}
	defer rows.Close()

	out := []document.Scored{}
	for rows.Next() {
		var (
			id       string
			content  string
			metaJSON []byte
			score    float64
		)
		if err := rows.Scan(&id, &content, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		meta, err := decodeMetadata(metaJSON)
		if err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", id, err)
		}
		out = append(out, document.Scored{Document: document.New(content, meta), Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return out, nil
}

// decodeMetadata flattens a jsonb object into string metadata. Strings are
// kept, numbers keep their JSON spelling, booleans become "true"/"false".
// Nulls, arrays and nested objects are dropped: they cannot match a tag filter.
func decodeMetadata(raw []byte) (map[string]string, error) {
	meta := map[string]string{}
	if len(raw) == 0 {
		return meta, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by the caller with the row id
	}
	for k, v := range fields {
		switch v := v.(type) {
		case string:
			meta[k] = v
		case json.Number:
			meta[k] = v.String()
		case bool:
			meta[k] = strconv.FormatBool(v)
		}
	}
	return meta, nil
}

// buildQuery renders the KNN statement. Metadata keys and values are always
// bound parameters; only the validated table name is interpolated.
func buildQuery(table string, vec pgvector.Vector, k int, scope filter.Expression) (string, []any) {
	args := []any{vec}
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	match := func(c filter.Condition) string {
		return fmt.Sprintf("metadata->>%s::text = %s", bind(c.Key()), bind(c.Match()))
	}

	var where []string
	for _, c := range scope.Must() {
		where = append(where, match(c))
	}
	if should := scope.Should(); len(should) > 0 {
		parts := make([]string, 0, len(should))
		for _, c := range should {
			parts = append(parts, match(c))
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}
	for _, c := range scope.MustNot() {
		where = append(where, fmt.Sprintf("metadata->>%s::text IS DISTINCT FROM %s", bind(c.Key()), bind(c.Match())))
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY embedding <=> $1 LIMIT ")
	sb.WriteString(bind(k))
	return sb.String(), args
}
