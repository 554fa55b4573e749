package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external model provider (embedding or generation).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
