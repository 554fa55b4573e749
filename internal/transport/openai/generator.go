package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/metrics"
)

// Generator sends the composed prompt as a single user message to a chat
// completion endpoint and returns the first choice.
type Generator struct {
	client         *openai.Client
	model          string
	provider       string
	temperature    float32
	temperatureSet bool
	maxTokens      int
	logger         *zap.Logger
}

// NewGenerator creates a chat completion generator. Empty BaseURL and Model
// fall back to a local Ollama serving mistral.
func NewGenerator(cfg *Config) *Generator {
	c := *cfg
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultGenerationModel
	}
	if c.Provider == "" {
		c.Provider = "openai"
	}
	return &Generator{
		client:   newClient(&c),
		model:    c.Model,
		provider: c.Provider,
		logger:   loggerOrNop(c.Logger),
	}
}

// WithTemperature sets the sampling temperature. Without it the server
// default applies.
func (g *Generator) WithTemperature(t float32) *Generator {
	g.temperature = t
	g.temperatureSet = true
	return g
}

// WithMaxTokens caps the completion length. Zero leaves it to the server.
func (g *Generator) WithMaxTokens(n int) *Generator {
	g.maxTokens = n
	return g
}

// Provider returns the metrics label of this generator.
func (g *Generator) Provider() string { return g.provider }

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate implements query.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
	}
	if g.temperatureSet {
		req.Temperature = g.temperature
		// go-openai omits a zero temperature; the smallest positive float32
		// is its convention for an explicit 0.
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	metrics.GenerationDuration.WithLabelValues(g.provider, g.model).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "timeout").Inc()
			return "", fmt.Errorf("chat completion: %w", err)
		}
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, errorType(err)).Inc()
		return "", parseAPIError("generation", err, domain.ErrGeneratorFailure)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGeneratorFailure)
	}

	g.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
