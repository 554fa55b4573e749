package contextq

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	queryuc "github.com/kailas-cloud/contextq/internal/usecase/query"
)

// Retrieval strategies accepted by WithStrategy.
const (
	// StrategyFilter keeps only chunks tagged with the caller's role or account.
	StrategyFilter = queryuc.StrategyFilter
	// StrategyAugment keeps every retrieved chunk; the identity only shapes the query text.
	StrategyAugment = queryuc.StrategyAugment
)

// DefaultTemplatesDir is where policy fragments are looked up unless WithTemplates is given.
const DefaultTemplatesDir = "Prompt_Templates"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	index Index

	chromemPath       string
	chromemCollection string
	embedder          Embedder

	generator        Generator
	generatorTimeout time.Duration

	templatesDir string
	strategy     string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithIndex sets a caller-provided vector index.
func WithIndex(idx Index) Option {
	return optionFunc(func(c *clientConfig) {
		c.index = idx
	})
}

// WithChromem loads a chromem-go database from path (a persisted directory or
// a gob export) and searches the named collection, embedding questions with e.
// An empty collection name means "knowledge-base".
func WithChromem(path, collection string, e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.chromemPath = path
		c.chromemCollection = collection
		c.embedder = e
	})
}

// WithGenerator sets the language model. Required.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithGeneratorTimeout bounds each generator call. Zero (default) adds no deadline.
func WithGeneratorTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.generatorTimeout = d
	})
}

// WithTemplates sets the policy template directory.
// Default: DefaultTemplatesDir.
func WithTemplates(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.templatesDir = dir
	})
}

// WithStrategy selects StrategyFilter (default) or StrategyAugment.
func WithStrategy(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.strategy = name
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
