package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyweaver/internal/models"

	"go.uber.org/zap"
)

var ErrGenerationFailed = errors.New("content generation failed")

// ContentProvider генерирует текст для mock-эндпоинтов истории.
// Контроллер сессии о нём не знает, реализацию можно заменить целиком.
type ContentProvider interface {
	Opening(ctx context.Context, cfg models.StoryConfig) (string, error)
	Continuation(ctx context.Context, req models.ContinueRequest) (string, error)
}

type ProviderConfig struct {
	Type     string // canned, openai, ollama
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewContentProvider выбирает реализацию по cfg.Type.
func NewContentProvider(cfg ProviderConfig, logger *zap.Logger) (ContentProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Type) {
	case "", "canned":
		catalog, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		logger.Info("Using canned content provider", zap.Duration("minDelay", cfg.MinDelay), zap.Duration("maxDelay", cfg.MaxDelay))
		return NewCannedProvider(catalog, WithDelay(cfg.MinDelay, cfg.MaxDelay)), nil
	case "openai":
		return newOpenAIProvider(cfg, logger)
	case "ollama":
		return newOllamaProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown content provider type: %q", cfg.Type)
	}
}

const systemPrompt = `You are StoryWeaver, the narrator of an interactive fantasy story.
Write vivid second-person prose, one or two short paragraphs, and end by inviting the reader to act.
Never break character and never mention that you are an AI.`

func openingInput(cfg models.StoryConfig) string {
	return fmt.Sprintf("Story title: %s\nStory mode: %s\nStyle: %s\n\nBegin the story.", cfg.Title, cfg.Mode, cfg.Style)
}

func continuationInput(req models.ContinueRequest) string {
	var b strings.Builder
	if req.Config != nil {
		fmt.Fprintf(&b, "Story title: %s\nStyle: %s\n", req.Config.Title, req.Config.Style)
	}
	fmt.Fprintf(&b, "\nThe reader says: %s\n\nContinue the story.", req.Message)
	return b.String()
}
