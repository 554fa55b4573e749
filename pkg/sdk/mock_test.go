package contextq

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/philippgille/chromem-go"

	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
	healthuc "github.com/kailas-cloud/contextq/internal/usecase/health"
)

// --- public collaborator stubs ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

func constEmbedder(vec ...float32) *mockEmbedder {
	return &mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: vec}, nil
	}}
}

type stubIndex struct {
	chunks []Chunk
	err    error
	gotK   int
}

func (s *stubIndex) Search(_ context.Context, _ string, k int) ([]Chunk, error) {
	s.gotK = k
	return s.chunks, s.err
}

type pingIndex struct {
	stubIndex
	pingErr error
}

func (p *pingIndex) Ping(context.Context) error { return p.pingErr }

type stubGenerator struct {
	answer    string
	err       error
	gotPrompt string
	healthErr error
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.gotPrompt = prompt
	return g.answer, g.err
}

type checkedGenerator struct {
	stubGenerator
}

func (g *checkedGenerator) HealthCheck(context.Context) error { return g.healthErr }

// --- internal use case mocks ---

type mockQueryUC struct {
	fn func(ctx context.Context, qc domquery.Context) (domquery.Result, error)
}

func (m *mockQueryUC) Execute(ctx context.Context, qc domquery.Context) (domquery.Result, error) {
	return m.fn(ctx, qc)
}

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(q queryUseCase, h healthUseCase) *Client {
	return &Client{querySvc: q, healthSvc: h}
}

func strPtr(s string) *string { return &s }

// writeChromemExport stores two chunks along orthogonal axes and returns the gob path.
func writeChromemExport(t *testing.T) string {
	t.Helper()
	db := chromem.NewDB()
	c, err := db.CreateCollection("knowledge-base", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []chromem.Document{
		{ID: "c1", Content: "Use git revert for shared branches.", Embedding: []float32{1, 0},
			Metadata: map[string]string{"id": "doc1", "role": "dev"}},
		{ID: "c2", Content: "Invoices are issued monthly.", Embedding: []float32{0, 1},
			Metadata: map[string]string{"id": "doc2", "account": "finance"}},
	} {
		if err := c.AddDocument(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "kb.gob")
	if err := db.Export(path, false, ""); err != nil {
		t.Fatal(err)
	}
	return path
}
