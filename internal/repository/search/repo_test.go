package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/contextq/internal/db"
	"github.com/kailas-cloud/contextq/internal/domain"
)

func TestSimilaritySearch_HappyPath(t *testing.T) {
	repo, ms, me := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != DefaultIndexName {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.VectorField != "vector" {
			t.Errorf("unexpected vector field: %s", q.VectorField)
		}
		if q.K != 5 {
			t.Errorf("unexpected K: %d", q.K)
		}
		if !q.Filters.IsEmpty() {
			t.Error("plain search must not pre-filter")
		}
		if !slices.Equal(q.ReturnFields, []string{"content", "id", "role", "account"}) {
			t.Errorf("unexpected return fields: %v", q.ReturnFields)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "kb:1", Score: 0.877, Fields: map[string]string{
					"content": "reset --soft", "id": "doc1", "role": "admin",
				}},
				{Key: "kb:2", Score: 0.544, Fields: map[string]string{
					"content": "other", "account": "acme",
				}},
			},
		}, nil
	}

	results, err := repo.SimilaritySearch(context.Background(), "Role: admin, Account: acme, Query: reset", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.got != "Role: admin, Account: acme, Query: reset" {
		t.Errorf("embedded %q", me.got)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Document.Content() != "reset --soft" || results[0].Score != 0.877 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if id, _ := results[0].Document.ID(); id != "doc1" {
		t.Errorf("expected id doc1, got %q", id)
	}
	if _, ok := results[1].Document.ID(); ok {
		t.Error("second result has no id metadata")
	}
	if _, ok := results[0].Document.Meta("content"); ok {
		t.Error("content must not leak into metadata")
	}
}

func TestSimilaritySearchWithin_PassesScope(t *testing.T) {
	repo, ms, _ := newTestRepo(t)

	var got int
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = len(q.Filters.Should())
		return &db.SearchResult{}, nil
	}

	res, err := repo.SimilaritySearchWithin(context.Background(), "q", 5, accessScope(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("expected 2 should conditions pushed down, got %d", got)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil result, got %v", res)
	}
}

func TestSimilaritySearch_CustomLayout(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, &mockEmbedder{vec: []float32{1}}, Config{
		IndexName:      "docs:idx",
		VectorField:    "embedding",
		ContentField:   "text",
		MetadataFields: []string{"id"},
	})

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "docs:idx" || q.VectorField != "embedding" {
			t.Errorf("unexpected layout: %s %s", q.IndexName, q.VectorField)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "k", Fields: map[string]string{"text": "body", "id": "x"}},
		}}, nil
	}

	res, err := repo.SimilaritySearch(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Document.Content() != "body" {
		t.Errorf("content = %q", res[0].Document.Content())
	}
}

func TestSimilaritySearch_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		repo, _, me := newTestRepo(t)
		me.err = errors.New("provider down")

		_, err := repo.SimilaritySearch(context.Background(), "q", 5)
		if !errors.Is(err, domain.ErrEmbeddingProviderError) {
			t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
		}
	})

	t.Run("missing index", func(t *testing.T) {
		repo, ms, _ := newTestRepo(t)
		ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
			return nil, db.ErrIndexNotFound
		}

		_, err := repo.SimilaritySearch(context.Background(), "q", 5)
		if !errors.Is(err, domain.ErrIndexUnavailable) {
			t.Errorf("expected ErrIndexUnavailable, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		repo, ms, _ := newTestRepo(t)
		storeErr := &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}
		ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
			return nil, storeErr
		}

		_, err := repo.SimilaritySearch(context.Background(), "q", 5)
		var dbErr *db.Error
		if !errors.As(err, &dbErr) {
			t.Errorf("expected db.Error in chain, got %v", err)
		}
	})
}

func TestPing(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ms.pingErr = errors.New("down")
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
