package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/contextq/internal/db"
	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	pingErr     error
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

type mockEmbedder struct {
	vec []float32
	err error
	got string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.got = text
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

func newTestRepo(t *testing.T) (*Repo, *mockStore, *mockEmbedder) {
	t.Helper()
	ms := &mockStore{}
	me := &mockEmbedder{vec: []float32{0.1, 0.1, 0.1, 0.1}}
	return New(ms, me, Config{}), ms, me
}

func accessScope(t *testing.T) filter.Expression {
	t.Helper()
	role, err := filter.NewMatch("role", "admin")
	if err != nil {
		t.Fatal(err)
	}
	account, err := filter.NewMatch("account", "acme")
	if err != nil {
		t.Fatal(err)
	}
	e, err := filter.NewExpression(nil, []filter.Condition{role, account}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}
