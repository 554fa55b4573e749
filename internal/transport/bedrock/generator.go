// Package bedrock generates answers with Anthropic Claude models on Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/domain"
	"github.com/kailas-cloud/contextq/internal/metrics"
)

// Defaults applied when Config leaves ModelID or MaxTokens empty.
const (
	DefaultModelID   = "anthropic.claude-3-haiku-20240307-v1:0"
	DefaultMaxTokens = 1024
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	provider         = "bedrock"
)

// invoker is the consumer interface over the Bedrock runtime client (ISP).
type invoker interface {
	InvokeModel(
		ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds the Bedrock generation settings.
type Config struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float64 // sent as is; 0 is greedy decoding
	Logger      *zap.Logger
}

// Generator calls InvokeModel with the Anthropic messages body.
type Generator struct {
	client      invoker
	modelID     string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewGenerator loads the default AWS credential chain and creates a generator.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newGenerator(client invoker, cfg *Config) *Generator {
	g := &Generator{
		client:      client,
		modelID:     cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
	if g.modelID == "" {
		g.modelID = DefaultModelID
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate implements query.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        g.maxTokens,
		Temperature:      g.temperature,
		Messages:         []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	metrics.GenerationDuration.WithLabelValues(provider, g.modelID).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			metrics.GenerationErrorsTotal.WithLabelValues(provider, g.modelID, "timeout").Inc()
			return "", fmt.Errorf("invoke model: %w", err)
		}
		metrics.GenerationErrorsTotal.WithLabelValues(provider, g.modelID, "api_error").Inc()
		return "", fmt.Errorf("invoke model %s: %w: %w", g.modelID, domain.ErrGeneratorFailure, err)
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		metrics.GenerationErrorsTotal.WithLabelValues(provider, g.modelID, "bad_response").Inc()
		return "", fmt.Errorf("decode response: %w: %w", domain.ErrGeneratorFailure, err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		metrics.GenerationErrorsTotal.WithLabelValues(provider, g.modelID, "empty_response").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrGeneratorFailure)
	}

	g.logger.Debug("completion received",
		zap.String("model", g.modelID),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)
	return sb.String(), nil
}
