package generator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storyweaver/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAIProvider struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func newOpenAIProvider(cfg ProviderConfig, logger *zap.Logger) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires an API key")
	}
	clientConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	logger.Info("Using OpenAI content provider", zap.String("baseURL", clientConfig.BaseURL), zap.String("model", model))
	return &openAIProvider{
		client: openaigo.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.Named("OpenAIProvider"),
	}, nil
}

func (p *openAIProvider) Opening(ctx context.Context, cfg models.StoryConfig) (string, error) {
	return p.generate(ctx, openingInput(cfg))
}

func (p *openAIProvider) Continuation(ctx context.Context, req models.ContinueRequest) (string, error) {
	return p.generate(ctx, continuationInput(req))
}

func (p *openAIProvider) generate(ctx context.Context, userInput string) (string, error) {
	labels := prometheus.Labels{"provider": "openai", "model": p.model}
	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: p.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userInput},
		},
	})
	duration := time.Since(start)
	generationDuration.With(labels).Observe(duration.Seconds())

	if err != nil {
		p.logger.Error("AI request failed", zap.Duration("duration", duration), zap.Error(err))
		generationRequestsTotal.WithLabelValues("openai", p.model, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		p.logger.Warn("AI returned an empty response", zap.Duration("duration", duration))
		generationRequestsTotal.WithLabelValues("openai", p.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	generationRequestsTotal.WithLabelValues("openai", p.model, "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		generationTokensTotal.WithLabelValues(p.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		generationTokensTotal.WithLabelValues(p.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	text := resp.Choices[0].Message.Content
	p.logger.Debug("AI response received", zap.Duration("duration", duration), zap.Int("length", len(text)))
	return text, nil
}
