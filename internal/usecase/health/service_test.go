package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockIndexPinger struct {
	err error
}

func (m *mockIndexPinger) Ping(_ context.Context) error { return m.err }

type mockProviderChecker struct {
	err      error
	deadline bool
}

func (m *mockProviderChecker) HealthCheck(ctx context.Context) error {
	_, m.deadline = ctx.Deadline()
	return m.err
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockIndexPinger{}).
		WithEmbedding(&mockProviderChecker{}).
		WithGeneration(&mockProviderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentIndex, ComponentEmbedding, ComponentGeneration} {
		if r.Checks[c] != CheckOK {
			t.Errorf("expected %s %q, got %q", c, CheckOK, r.Checks[c])
		}
	}
}

func TestCheck_IndexError(t *testing.T) {
	svc := New(&mockIndexPinger{err: errors.New("conn refused")}).WithEmbedding(&mockProviderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentIndex] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks[ComponentIndex])
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_ProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		emb, gen  error
		component string
	}{
		{"embedding down", errors.New("timeout"), nil, ComponentEmbedding},
		{"generation down", nil, errors.New("model not loaded"), ComponentGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockIndexPinger{}).
				WithEmbedding(&mockProviderChecker{err: tt.emb}).
				WithGeneration(&mockProviderChecker{err: tt.gen})
			r := svc.Check(context.Background())

			if r.Status != Degraded {
				t.Errorf("expected %q, got %q", Degraded, r.Status)
			}
			if r.Checks[tt.component] != CheckError {
				t.Errorf("expected %s error", tt.component)
			}
		})
	}
}

func TestCheck_OnlyIndex(t *testing.T) {
	r := New(&mockIndexPinger{}).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the index check, got %v", r.Checks)
	}
}

func TestCheck_AppliesTimeout(t *testing.T) {
	emb := &mockProviderChecker{}
	New(&mockIndexPinger{}).WithEmbedding(emb).Check(context.Background())
	if !emb.deadline {
		t.Error("expected per-check deadline by default")
	}

	emb = &mockProviderChecker{}
	New(&mockIndexPinger{}).WithEmbedding(emb).WithTimeout(0).Check(context.Background())
	if emb.deadline {
		t.Error("expected no deadline with zero timeout")
	}

	emb = &mockProviderChecker{}
	New(&mockIndexPinger{}).WithEmbedding(emb).WithTimeout(time.Second).Check(context.Background())
	if !emb.deadline {
		t.Error("expected deadline with explicit timeout")
	}
}
