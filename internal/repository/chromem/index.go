// Package chromem serves similarity search from an embedded chromem-go database
// loaded from a persisted directory or a gob export.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/document"
)

// DefaultCollection is the collection name written by the ingestion job.
const DefaultCollection = "knowledge-base"

// Index is a read-only view over one chromem collection.
type Index struct {
	collection *chromem.Collection
	name       string
}

// Open loads a database from path and returns an index over its collection.
// A directory is opened as a persistent DB; a file is imported as a gob export.
func Open(path, collection string, embed chromem.EmbeddingFunc) (*Index, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIndexUnavailable, path, err)
	}

	var db *chromem.DB
	if info.IsDir() {
		db, err = chromem.NewPersistentDB(path, false)
	} else {
		db = chromem.NewDB()
		err = db.Import(path, "")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", domain.ErrIndexUnavailable, path, err)
	}

	return New(db, collection, embed)
}

// New wraps an existing collection of db.
func New(db *chromem.DB, collection string, embed chromem.EmbeddingFunc) (*Index, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	c := db.GetCollection(collection, embed)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %q not found", domain.ErrIndexUnavailable, collection)
	}
	return &Index{collection: c, name: collection}, nil
}

// Count returns the number of stored chunks.
func (i *Index) Count() int { return i.collection.Count() }

// Ping reports whether the collection is loaded.
func (i *Index) Ping(_ context.Context) error {
	if i.collection == nil {
		return errors.New("collection not loaded")
	}
	return nil
}

// SimilaritySearch returns up to k chunks ordered by cosine similarity.
func (i *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]document.Scored, error) {
	n := min(k, i.collection.Count())
	if n <= 0 {
		return []document.Scored{}, nil
	}

	res, err := i.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("query collection %s: %w", i.name, err)
	}

	out := make([]document.Scored, 0, len(res))
	for _, r := range res {
		// r.ID is the storage key; sources come from the "id" metadata only.
		out = append(out, document.Scored{
			Document: document.New(r.Content, r.Metadata),
			Score:    float64(r.Similarity),
		})
	}
	return out, nil
}
