package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyweaver/internal/models"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3"
)

type ollamaProvider struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaProvider(cfg ProviderConfig, logger *zap.Logger) (*ollamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	// Ollama-клиент сам добавляет /api/..., OpenAI-совместимый суффикс убираем.
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	logger.Info("Using Ollama content provider", zap.String("baseURL", parsedURL.String()), zap.String("model", model))
	return &ollamaProvider{
		client:  api.NewClient(parsedURL, &http.Client{}),
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger.Named("OllamaProvider"),
	}, nil
}

func (p *ollamaProvider) Opening(ctx context.Context, cfg models.StoryConfig) (string, error) {
	return p.generate(ctx, openingInput(cfg))
}

func (p *ollamaProvider) Continuation(ctx context.Context, req models.ContinueRequest) (string, error) {
	return p.generate(ctx, continuationInput(req))
}

func (p *ollamaProvider) generate(ctx context.Context, userInput string) (string, error) {
	requestCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
		Stream: &stream,
	}

	start := time.Now()
	var resp api.ChatResponse
	err := p.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)
	generationDuration.WithLabelValues("ollama", p.model).Observe(duration.Seconds())

	if err != nil {
		p.logger.Error("AI request failed", zap.Duration("duration", duration), zap.Error(err))
		generationRequestsTotal.WithLabelValues("ollama", p.model, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		p.logger.Warn("AI returned an empty response", zap.Duration("duration", duration))
		generationRequestsTotal.WithLabelValues("ollama", p.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	generationRequestsTotal.WithLabelValues("ollama", p.model, "success").Inc()
	if resp.PromptEvalCount > 0 {
		generationTokensTotal.WithLabelValues(p.model, "prompt").Add(float64(resp.PromptEvalCount))
		generationTokensTotal.WithLabelValues(p.model, "completion").Add(float64(resp.EvalCount))
	}
	return resp.Message.Content, nil
}
