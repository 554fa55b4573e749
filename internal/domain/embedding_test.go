package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type healthyStub struct {
	stubEmbedder
	healthErr error
}

func (h *healthyStub) HealthCheck(_ context.Context) error { return h.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "search_query: ")

	result, err := emb.Embed(context.Background(), "reset procedure")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "search_query: reset procedure" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "q: ")

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	t.Run("inner without health check", func(t *testing.T) {
		emb := NewInstructionEmbedder(&stubEmbedder{}, "q: ")
		if err := emb.HealthCheck(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("inner reports failure", func(t *testing.T) {
		down := errors.New("down")
		emb := NewInstructionEmbedder(&healthyStub{healthErr: down}, "q: ")
		if err := emb.HealthCheck(context.Background()); !errors.Is(err, down) {
			t.Fatalf("expected %v, got %v", down, err)
		}
	})
}

func TestVectorFunc(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1, 2}}}
	fn := VectorFunc(inner)

	vec, err := fn(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[1] != 2 {
		t.Errorf("unexpected vector: %v", vec)
	}

	failing := VectorFunc(&stubEmbedder{err: errors.New("boom")})
	if _, err := failing(context.Background(), "abc"); err == nil {
		t.Fatal("expected error")
	}
}
