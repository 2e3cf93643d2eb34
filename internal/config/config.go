package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const sessionSecretName = "session_secret"

// Config хранит конфигурацию фронтенда StoryWeaver.
type Config struct {
	Env         string `envconfig:"ENV" default:"development" validate:"oneof=development production test"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080" validate:"required,numeric"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING"`

	// Внешний бэкенд: авторизация, генерация, черновики
	BackendURL    string        `envconfig:"BACKEND_URL" default:"http://localhost:8000" validate:"required,url"`
	ClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s" validate:"gt=0"`

	// Сессии
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h" validate:"gt=0"`
	RememberMeTTL time.Duration `envconfig:"REMEMBER_ME_TTL" default:"720h" validate:"gt=0"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"false"`
	// Секрет без тега: SESSION_SECRET или /run/secrets/session_secret
	SessionSecret string `ignored:"true"`

	// Redis опционален: без адреса сессии и лимиты живут в памяти
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`

	// Генератор для mock-эндпоинтов
	ContentProvider string        `envconfig:"CONTENT_PROVIDER" default:"canned" validate:"oneof=canned openai ollama"`
	AIAPIKey        string        `envconfig:"AI_API_KEY"`
	AIBaseURL       string        `envconfig:"AI_BASE_URL"`
	AIModel         string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout       time.Duration `envconfig:"AI_TIMEOUT" default:"60s" validate:"gt=0"`
	MinDelay        time.Duration `envconfig:"CANNED_MIN_DELAY" default:"1s" validate:"gte=0"`
	MaxDelay        time.Duration `envconfig:"CANNED_MAX_DELAY" default:"3s" validate:"gtefield=MinDelay"`

	RateLimitPerMinute uint     `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30" validate:"gt=0"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// LoadConfig читает .env (если есть), переменные окружения и секреты.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	_ = godotenv.Load()
	return load(logger, defaultSecretsDir)
}

func load(logger *zap.Logger, secretsDir string) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	secret, err := readSecret(secretsDir, sessionSecretName)
	switch {
	case err == nil:
		cfg.SessionSecret = secret
	case errors.Is(err, errSecretMissing) && cfg.Env != "production":
		// в dev подходит случайный секрет: сессии просто не переживут рестарт
		cfg.SessionSecret = randomSecret()
		logger.Warn("Session secret not configured, generated an ephemeral one", zap.String("env", cfg.Env))
	default:
		return nil, fmt.Errorf("session secret: %w", err)
	}

	if cfg.ContentProvider == "openai" && cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("invalid configuration: AI_API_KEY is required for the openai content provider")
	}

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.ServerPort),
		zap.String("logLevel", cfg.LogLevel),
		zap.String("backendURL", cfg.BackendURL),
		zap.Duration("clientTimeout", cfg.ClientTimeout),
		zap.Duration("sessionTTL", cfg.SessionTTL),
		zap.Bool("redisEnabled", cfg.RedisAddr != ""),
		zap.String("contentProvider", cfg.ContentProvider),
		zap.Uint("rateLimitPerMinute", cfg.RateLimitPerMinute),
		zap.Bool("sessionSecretLoaded", cfg.SessionSecret != ""),
	)
	return &cfg, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
