package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storyweaver/internal/client"
	"storyweaver/internal/config"
	"storyweaver/internal/generator"
	"storyweaver/internal/handler"
	applogger "storyweaver/internal/logger"
	"storyweaver/internal/middleware"
	"storyweaver/internal/service"
	"storyweaver/internal/session"
	"storyweaver/internal/web"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const sessionSweepInterval = time.Minute

func main() {
	// до инициализации zap пишем через стандартный log
	log.Println("Starting StoryWeaver web...")

	// уровень и формат логов берутся из конфига, поэтому конфиг читаем
	// временным production-логгером
	bootLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize bootstrap logger: %v", err)
	}
	cfg, err := config.LoadConfig(bootLogger)
	_ = bootLogger.Sync()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := applogger.New(applogger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	zap.L().Info("Logger initialized",
		zap.String("env", cfg.Env),
		zap.String("logLevel", cfg.LogLevel),
		zap.String("backendURL", cfg.BackendURL),
		zap.String("contentProvider", cfg.ContentProvider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Хранилища: Redis, если задан адрес, иначе память процесса ---
	var (
		store      session.Store
		limitStore ratelimit.Store
	)
	if cfg.RedisAddr != "" {
		redisClient, err := setupRedis(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient, logger)
		limitStore = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: redisClient,
			Rate:        time.Minute,
			Limit:       cfg.RateLimitPerMinute,
		})
	} else {
		memStore := session.NewMemoryStore(logger)
		go memStore.Run(ctx, sessionSweepInterval)
		store = memStore
		limitStore = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Minute,
			Limit: cfg.RateLimitPerMinute,
		})
		zap.L().Warn("REDIS_ADDR not set, sessions are kept in memory and lost on restart")
	}

	// --- Клиенты и сервисы ---
	gateway, err := client.NewBackendClient(cfg.BackendURL, cfg.ClientTimeout, logger)
	if err != nil {
		zap.L().Fatal("Failed to create backend client", zap.Error(err))
	}
	svc := service.NewStorySessionService(store, gateway, logger, service.Options{
		SessionTTL:    cfg.SessionTTL,
		RememberMeTTL: cfg.RememberMeTTL,
	})
	provider, err := generator.NewContentProvider(generator.ProviderConfig{
		Type:     cfg.ContentProvider,
		APIKey:   cfg.AIAPIKey,
		BaseURL:  cfg.AIBaseURL,
		Model:    cfg.AIModel,
		Timeout:  cfg.AITimeout,
		MinDelay: cfg.MinDelay,
		MaxDelay: cfg.MaxDelay,
	}, logger)
	if err != nil {
		zap.L().Fatal("Failed to create content provider", zap.Error(err))
	}
	h := handler.NewHandler(svc, provider, handler.Config{
		SessionSecret: []byte(cfg.SessionSecret),
		CookieSecure:  cfg.CookieSecure,
	}, logger)

	// --- Gin ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(handler.CustomErrorMiddleware(logger, web.NotFoundPage()))

	tmpl, err := web.Templates(nil)
	if err != nil {
		zap.L().Fatal("Failed to load templates", zap.Error(err))
	}
	router.SetHTMLTemplate(tmpl)

	p := ginprometheus.NewPrometheus("gin")
	// метка url по шаблону маршрута, а не по пути с id черновика
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		if path := c.FullPath(); path != "" {
			return path
		}
		return "unmatched"
	}
	p.Use(router)

	h.RegisterRoutes(router, handler.Middlewares{
		RateLimit: handler.RateLimiter(limitStore, logger),
		CORS:      cors.New(corsConfig(cfg.CORSAllowedOrigins)),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// запрос к бэкенду держит ответ до HTTP_CLIENT_TIMEOUT
		WriteTimeout: cfg.ClientTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP server forced to shutdown", zap.Error(err))
	}
	zap.L().Info("Server exiting")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowAllOrigins = true
	}
	c.AllowMethods = []string{"POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	c.MaxAge = 12 * time.Hour
	return c
}

// setupRedis подключается к Redis с несколькими попытками.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	const (
		maxRetries = 10
		retryDelay = 3 * time.Second
	)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			zap.L().Info("Successfully connected and pinged Redis", zap.String("address", opts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}
		_ = client.Close()
		lastErr = err
		zap.L().Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
