// Package bootstrap is the composition root shared by the HTTP server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/config"
	dbRedis "github.com/kailas-cloud/contextq/internal/db/redis"
	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/metrics"
	chromemrepo "github.com/kailas-cloud/contextq/internal/repository/chromem"
	"github.com/kailas-cloud/contextq/internal/repository/embcache"
	pgvectorrepo "github.com/kailas-cloud/contextq/internal/repository/pgvector"
	searchrepo "github.com/kailas-cloud/contextq/internal/repository/search"
	"github.com/kailas-cloud/contextq/internal/transport/bedrock"
	openaiTransport "github.com/kailas-cloud/contextq/internal/transport/openai"
	"github.com/kailas-cloud/contextq/internal/usecase/consistency"
	healthuc "github.com/kailas-cloud/contextq/internal/usecase/health"
	"github.com/kailas-cloud/contextq/internal/usecase/prompt"
	queryuc "github.com/kailas-cloud/contextq/internal/usecase/query"
	"github.com/kailas-cloud/contextq/internal/usecase/retrieval"
	"github.com/kailas-cloud/contextq/internal/usecase/template"
)

// vectorIndex is what every index driver provides.
type vectorIndex interface {
	retrieval.Index
	healthuc.IndexPinger
}

// App holds the wired services and the resources they own.
type App struct {
	Config config.Config
	Query  *queryuc.Service
	Health *healthuc.Service

	StartedAt time.Time

	logger  *zap.Logger
	closers []func()
}

// New builds the query pipeline described by cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, logger: logger, StartedAt: time.Now()}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterQueryMetrics()

	var redis *dbRedis.Store
	if cfg.Index.Driver == config.IndexRedis || cfg.Embedding.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
		redis = store
	}

	embedder := buildEmbedder(cfg.Embedding, redis, logger)

	index, err := app.buildIndex(ctx, cfg.Index, redis, embedder)
	if err != nil {
		app.Close()
		return nil, err
	}

	generator, err := buildGenerator(ctx, cfg.Generation, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	strategy, err := queryuc.NewStrategy(cfg.Retrieval.Strategy, cfg.Retrieval.Pushdown)
	if err != nil {
		app.Close()
		return nil, err
	}

	retriever := retrieval.New(index)
	if cfg.Retrieval.Pushdown && !retriever.SupportsPushdown() {
		logger.Warn("Index driver cannot pre-filter; access filter runs in memory only",
			zap.String("driver", cfg.Index.Driver))
	}

	app.Query = queryuc.New(
		retriever,
		template.NewStore(cfg.Templates.Dir).WithLogger(logger),
		prompt.NewComposer(),
		generator,
		consistency.NewChecker(),
	).
		WithStrategy(strategy).
		WithLogger(logger).
		WithGeneratorTimeout(time.Duration(cfg.Generation.TimeoutSec) * time.Second)

	app.Health = healthuc.New(index)
	if hc, ok := embedder.(healthuc.ProviderChecker); ok {
		app.Health.WithEmbedding(hc)
	}
	if hc, ok := generator.(healthuc.ProviderChecker); ok {
		app.Health.WithGeneration(hc)
	}

	logger.Info("Query pipeline ready",
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("strategy", strategy.Name()),
		zap.Bool("pushdown", cfg.Retrieval.Pushdown),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("templates_dir", cfg.Templates.Dir),
	)
	return app, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
func buildEmbedder(cfg config.EmbeddingConfig, redis *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	if cfg.Cache.Enabled && redis != nil {
		embedder = embcache.New(embedder, redis, metrics.EmbeddingCacheTotal, logger).
			WithPrefix(cfg.Cache.KeyPrefix).
			WithTTL(time.Duration(cfg.Cache.TTLSec) * time.Second)
	}

	// Instruction prefix is outermost, so the cache key includes it
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

func (a *App) buildIndex(
	ctx context.Context, cfg config.IndexConfig, redis *dbRedis.Store, embedder domain.Embedder,
) (vectorIndex, error) {
	switch cfg.Driver {
	case config.IndexChromem:
		idx, err := chromemrepo.Open(cfg.Chromem.Path, cfg.Chromem.Collection, domain.VectorFunc(embedder))
		if err != nil {
			return nil, fmt.Errorf("open chromem index: %w", err)
		}
		a.logger.Info("Loaded chromem index",
			zap.String("path", cfg.Chromem.Path), zap.Int("documents", idx.Count()))
		return idx, nil

	case config.IndexRedis:
		if redis == nil {
			return nil, errors.New("redis index requires a redis connection")
		}
		exists, err := redis.IndexExists(ctx, cfg.Redis.Name)
		if err != nil {
			return nil, fmt.Errorf("inspect redis index: %w", err)
		}
		if !exists {
			a.logger.Warn("Redis index not found; queries will fail until it is created",
				zap.String("index", cfg.Redis.Name))
		}
		return searchrepo.New(redis, embedder, searchrepo.Config{
			IndexName:    cfg.Redis.Name,
			VectorField:  cfg.Redis.VectorField,
			ContentField: cfg.Redis.ContentField,
		}), nil

	case config.IndexPgvector:
		idx, pool, err := pgvectorrepo.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, embedder)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
}

func buildGenerator(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (queryuc.Generator, error) {
	switch cfg.Provider {
	case config.GenerationOpenAI:
		gen := openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Logger:   logger,
		}).WithMaxTokens(cfg.MaxTokens)
		if cfg.Temperature != nil {
			gen.WithTemperature(float32(*cfg.Temperature))
		}
		return gen, nil

	case config.GenerationBedrock:
		var temperature float64
		if cfg.Temperature != nil {
			temperature = *cfg.Temperature
		}
		gen, err := bedrock.NewGenerator(ctx, &bedrock.Config{
			Region:      cfg.Region,
			ModelID:     cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create bedrock generator: %w", err)
		}
		return gen, nil

	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
