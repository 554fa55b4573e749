package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider failure; queries may still succeed.
	Degraded Status = "degraded"
	// Unhealthy indicates the index is unreachable; no query can be answered.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentIndex      = "index"
	ComponentEmbedding  = "embedding"
	ComponentGeneration = "generation"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      IndexPinger
	embedding  ProviderChecker
	generation ProviderChecker
	timeout    time.Duration
}

// New creates a Service for the given index.
func New(index IndexPinger) *Service {
	return &Service{index: index, timeout: DefaultCheckTimeout}
}

// WithEmbedding adds the embedding provider check.
func (s *Service) WithEmbedding(c ProviderChecker) *Service {
	s.embedding = c
	return s
}

// WithGeneration adds the generation provider check.
func (s *Service) WithGeneration(c ProviderChecker) *Service {
	s.generation = c
	return s
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	checks[ComponentIndex] = s.run(ctx, s.index.Ping)
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.run(ctx, s.embedding.HealthCheck)
	}
	if s.generation != nil {
		checks[ComponentGeneration] = s.run(ctx, s.generation.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentIndex] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
