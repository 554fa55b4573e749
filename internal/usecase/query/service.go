package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/domain/document"
	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
	"github.com/kailas-cloud/contextq/internal/logger"
	"github.com/kailas-cloud/contextq/internal/metrics"
	"github.com/kailas-cloud/contextq/internal/usecase/prompt"
	"github.com/kailas-cloud/contextq/internal/usecase/retrieval"
)

const outcomeError = "error"

// Service runs the query pipeline: retrieve, narrow, compose, generate, check.
// It holds no per-query state; Execute is safe for concurrent use.
type Service struct {
	retriever Retriever
	strategy  Strategy
	templates TemplateStore
	composer  PromptComposer
	generator Generator
	checker   ConsistencyChecker
	logger    *zap.Logger

	generatorTimeout time.Duration
}

// New creates a Service using the filter strategy without pushdown.
func New(
	retriever Retriever, templates TemplateStore, composer PromptComposer,
	generator Generator, checker ConsistencyChecker,
) *Service {
	return &Service{
		retriever: retriever,
		strategy:  NewFilterStrategy(false),
		templates: templates,
		composer:  composer,
		generator: generator,
		checker:   checker,
		logger:    zap.NewNop(),
	}
}

// WithStrategy replaces the retrieval strategy.
func (s *Service) WithStrategy(st Strategy) *Service {
	s.strategy = st
	return s
}

// WithLogger sets the base logger. A logger found in the request context takes precedence.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	s.logger = l
	return s
}

// WithGeneratorTimeout bounds each generator call. Zero means no extra deadline.
func (s *Service) WithGeneratorTimeout(d time.Duration) *Service {
	s.generatorTimeout = d
	return s
}

// Strategy returns the active retrieval strategy.
func (s *Service) Strategy() Strategy { return s.strategy }

// Execute answers a question for the given identity.
// Running out of documents is a normal outcome, not an error.
func (s *Service) Execute(ctx context.Context, qc domquery.Context) (domquery.Result, error) {
	if err := qc.Validate(); err != nil {
		s.countQuery(outcomeError)
		return domquery.Result{}, err
	}

	log := logger.FromContextOr(ctx, s.logger).With(
		zap.String("role", qc.Role),
		zap.String("account", qc.Account),
		zap.String("user", qc.User),
		zap.String("strategy", s.strategy.Name()),
	)

	effective := retrieval.EffectiveQuery(qc.Question, qc.Role, qc.Account)
	log.Debug("query built", zap.String("effective_query", effective))

	retrieved, kept, err := s.strategy.Select(ctx, s.retriever, effective, qc)
	if err != nil {
		s.countQuery(outcomeError)
		log.Error("retrieval failed", zap.Error(err))
		return domquery.Result{}, err
	}

	metrics.DocumentsRetrieved.WithLabelValues("retrieved").Observe(float64(len(retrieved)))
	log.Info("documents retrieved", zap.Int("count", len(retrieved)))
	if len(retrieved) == 0 {
		log.Info("no documents: index returned nothing", zap.String("reason", string(domquery.EmptyRetrieval)))
		return s.noDocuments(domquery.EmptyRetrieval), nil
	}

	metrics.DocumentsRetrieved.WithLabelValues("kept").Observe(float64(len(kept)))
	log.Info("documents filtered", zap.Int("before", len(retrieved)), zap.Int("after", len(kept)))
	if len(kept) == 0 {
		log.Info("no documents: none matched role or account", zap.String("reason", string(domquery.EmptyAfterFilter)))
		return s.noDocuments(domquery.EmptyAfterFilter), nil
	}

	contextText := prompt.JoinContext(document.Contents(kept))

	tmpl, err := s.templates.Compose(qc.Account, qc.Role, qc.User)
	if err != nil {
		s.countQuery(outcomeError)
		return domquery.Result{}, fmt.Errorf("compose template: %w", err)
	}
	promptText, err := s.composer.Compose(string(tmpl), contextText, qc.Question)
	if err != nil {
		s.countQuery(outcomeError)
		log.Error("prompt composition failed", zap.Error(err))
		return domquery.Result{}, fmt.Errorf("compose prompt: %w", err)
	}
	log.Debug("prompt composed", zap.Int("prompt_bytes", len(promptText)), zap.Int("context_docs", len(kept)))

	start := time.Now()
	answer, err := s.generate(ctx, promptText)
	if err != nil {
		s.countQuery(outcomeError)
		log.Error("generation failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domquery.Result{}, err
	}
	log.Info("response received", zap.Duration("duration", time.Since(start)), zap.Int("response_bytes", len(answer)))

	suspect := s.checker.Check(answer, contextText)
	if suspect {
		metrics.HallucinationSuspectedTotal.WithLabelValues(s.strategy.Name()).Inc()
		log.Warn("hallucination suspected: response line not found in context")
	}

	s.countQuery(string(domquery.OutcomeAnswered))
	return domquery.Result{
		Outcome:                domquery.OutcomeAnswered,
		Answer:                 answer,
		Sources:                document.SourceIDs(kept),
		HallucinationSuspected: suspect,
	}, nil
}

func (s *Service) generate(ctx context.Context, promptText string) (string, error) {
	if s.generatorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.generatorTimeout)
		defer cancel()
	}

	answer, err := s.generator.Generate(ctx, promptText)
	if err != nil {
		if errors.Is(err, domain.ErrGeneratorFailure) {
			return "", fmt.Errorf("generate: %w", err)
		}
		return "", fmt.Errorf("generate: %w: %w", domain.ErrGeneratorFailure, err)
	}
	return answer, nil
}

func (s *Service) noDocuments(reason domquery.EmptyReason) domquery.Result {
	s.countQuery(string(domquery.OutcomeNoDocuments))
	return domquery.NoDocuments(reason)
}

func (s *Service) countQuery(outcome string) {
	metrics.QueriesTotal.WithLabelValues(s.strategy.Name(), outcome).Inc()
}
