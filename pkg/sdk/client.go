package contextq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/document"
	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
	chromemrepo "github.com/kailas-cloud/contextq/internal/repository/chromem"
	"github.com/kailas-cloud/contextq/internal/usecase/consistency"
	healthuc "github.com/kailas-cloud/contextq/internal/usecase/health"
	"github.com/kailas-cloud/contextq/internal/usecase/prompt"
	queryuc "github.com/kailas-cloud/contextq/internal/usecase/query"
	"github.com/kailas-cloud/contextq/internal/usecase/retrieval"
	"github.com/kailas-cloud/contextq/internal/usecase/template"
)

// Внутренние интерфейсы для подмены в тестах.
type queryUseCase interface {
	Execute(ctx context.Context, qc domquery.Context) (domquery.Result, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// searchIndex is what the query pipeline and the health check need from an index.
type searchIndex interface {
	retrieval.Index
	healthuc.IndexPinger
}

// Client is the contextq SDK entry point.
type Client struct {
	querySvc  queryUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New wires a Client. Exactly one of WithIndex or WithChromem and a
// WithGenerator are required. The context is unused today and reserved for
// index drivers that connect on startup.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		templatesDir: DefaultTemplatesDir,
		strategy:     StrategyFilter,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.generator == nil {
		return nil, errors.New("contextq: generator required (use WithGenerator)")
	}

	index, err := resolveIndex(cfg)
	if err != nil {
		return nil, err
	}

	strategy, err := queryuc.NewStrategy(cfg.strategy, false)
	if err != nil {
		return nil, fmt.Errorf("contextq: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return wireClient(index, strategy, cfg, obs), nil
}

func resolveIndex(cfg *clientConfig) (searchIndex, error) {
	switch {
	case cfg.index != nil && cfg.chromemPath != "":
		return nil, errors.New("contextq: WithIndex and WithChromem are mutually exclusive")
	case cfg.index != nil:
		return &indexAdapter{inner: cfg.index}, nil
	case cfg.chromemPath != "":
		if cfg.embedder == nil {
			return nil, errors.New("contextq: chromem index requires an embedder")
		}
		emb := domain.VectorFunc(&embedderAdapter{inner: cfg.embedder})
		idx, err := chromemrepo.Open(cfg.chromemPath, cfg.chromemCollection, emb)
		if err != nil {
			return nil, fmt.Errorf("contextq: %w", err)
		}
		return idx, nil
	default:
		return nil, errors.New("contextq: index required (use WithIndex or WithChromem)")
	}
}

func wireClient(index searchIndex, strategy queryuc.Strategy, cfg *clientConfig, obs *observer) *Client {
	querySvc := queryuc.New(
		retrieval.New(index),
		template.NewStore(cfg.templatesDir),
		prompt.NewComposer(),
		cfg.generator,
		consistency.NewChecker(),
	).
		WithStrategy(strategy).
		WithGeneratorTimeout(cfg.generatorTimeout)

	healthSvc := healthuc.New(index)
	if hc, ok := cfg.embedder.(healthuc.ProviderChecker); ok {
		healthSvc.WithEmbedding(hc)
	}
	if hc, ok := cfg.generator.(healthuc.ProviderChecker); ok {
		healthSvc.WithGeneration(hc)
	}

	return &Client{querySvc: querySvc, healthSvc: healthSvc, obs: obs}
}

// Close releases resources. Present for symmetry with index drivers that hold connections.
func (c *Client) Close() {}

// Ask answers q. Running out of documents is reported in the Answer, not as an error.
func (c *Client) Ask(ctx context.Context, q Question) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observeAsk(start, ans, err) }()

	res, err := c.querySvc.Execute(ctx, domquery.Context{
		Question: q.Text,
		Role:     q.Role,
		User:     q.User,
		Account:  q.Account,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return answerFromResult(res), nil
}

// indexAdapter wraps public Index to satisfy the internal retrieval index.
type indexAdapter struct {
	inner Index
}

func (a *indexAdapter) SimilaritySearch(ctx context.Context, query string, k int) ([]document.Scored, error) {
	chunks, err := a.inner.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]document.Scored, len(chunks))
	for i, ch := range chunks {
		out[i] = document.Scored{Document: document.New(ch.Content, ch.Metadata), Score: ch.Score}
	}
	return out, nil
}

// Ping delegates to the wrapped index when it exposes one.
func (a *indexAdapter) Ping(ctx context.Context) error {
	if p, ok := a.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
