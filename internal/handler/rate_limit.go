package handler

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter ограничивает запросы по IP. Ответ 429 повторяет формат
// бэкенда ({"detail": "Rate limit exceeded: ..."}).
func RateLimiter(store ratelimit.Store, logger *zap.Logger) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			wait := int(math.Ceil(time.Until(info.ResetTime).Seconds()))
			if wait < 1 {
				wait = 1
			}
			detail := fmt.Sprintf("Rate limit exceeded: try again in %ds.", wait)
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusTooManyRequests, gin.H{"detail": detail})
				return
			}
			c.String(http.StatusTooManyRequests, detail)
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
