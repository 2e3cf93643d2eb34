package handler

import (
	"net/http"
	"time"

	"storyweaver/internal/generator"
	"storyweaver/internal/service"
	"storyweaver/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Config struct {
	SessionSecret []byte
	CookieSecure  bool
}

// Middlewares - необязательные middleware, которые собирает main.
type Middlewares struct {
	RateLimit gin.HandlerFunc
	CORS      gin.HandlerFunc
}

// Handler обслуживает HTML-страницы StoryWeaver и mock API генерации.
type Handler struct {
	svc      *service.StorySessionService
	provider generator.ContentProvider
	cfg      Config
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(svc *service.StorySessionService, provider generator.ContentProvider, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		provider: provider,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger.Named("Handler"),
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, mw Middlewares) {
	router.GET("/health", h.healthCheck)
	router.HEAD("/health", h.healthCheck)
	router.StaticFS("/static", web.Static())

	pages := router.Group("/", h.sessionMiddleware)
	{
		pages.GET("/", h.showLanding)
		pages.GET("/login", h.showLogin)
		pages.POST("/login", handlers(mw.RateLimit, h.handleLogin)...)
		pages.GET("/signup", h.showSignup)
		pages.POST("/signup", handlers(mw.RateLimit, h.handleSignup)...)
		pages.POST("/logout", h.handleLogout)
	}

	chat := pages.Group("/chat", h.requireUser)
	{
		chat.GET("", h.showChat)
		chat.POST("/story", h.handleStartStory)
		chat.POST("/messages", h.handleSendMessage)
		chat.POST("/new", h.handleNewStory)
		chat.POST("/resume", h.handleResumeChat)
		chat.POST("/history", h.handleShowHistory)
		chat.POST("/history/deselect", h.handleDeselectDraft)
		chat.POST("/history/:id/select", h.handleSelectDraft)
		chat.POST("/history/:id/revise", h.handleReviseDraft)
		chat.POST("/history/:id/delete", h.handleDeleteDraft)
	}

	api := router.Group("/api/story", handlers(mw.CORS, mw.RateLimit)...)
	{
		api.POST("/start", h.handleStoryStart)
		api.POST("/continue", h.handleStoryContinue)
	}
	if mw.CORS != nil {
		// preflight для mock API
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handlers(fns ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(fns))
	for _, fn := range fns {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out
}
