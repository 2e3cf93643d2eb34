package handler

import (
	"errors"
	"fmt"
	"net/http"

	"storyweaver/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "sw_session"
	ctxSessionKey     = "storyweaver_session"
)

// sessionClaims - содержимое куки sw_session. Само состояние лежит в Store.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (h *Handler) signSession(sess *models.Session) (string, error) {
	now := h.now()
	claims := sessionClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.svc.TTL(sess))),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.cfg.SessionSecret)
}

func (h *Handler) parseSessionToken(tokenString string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return h.cfg.SessionSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(h.now))
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if claims.SessionID == "" {
		return "", errors.New("invalid session token: empty sid")
	}
	return claims.SessionID, nil
}

// setSessionCookie выдаёт куку заново. С "запомнить меня" она постоянная,
// иначе живёт до закрытия браузера.
func (h *Handler) setSessionCookie(c *gin.Context, sess *models.Session) {
	token, err := h.signSession(sess)
	if err != nil {
		h.logger.Error("Failed to sign session cookie", zap.String("sessionID", sess.ID), zap.Error(err))
		return
	}
	maxAge := 0
	if sess.RememberMe {
		maxAge = int(h.svc.TTL(sess).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", h.cfg.CookieSecure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
}

// sessionMiddleware находит сессию по куке. Без действующей куки посетитель
// получает гостевую сессию, которая не сохраняется.
func (h *Handler) sessionMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.With(zap.String("middleware", "sessionMiddleware"))

	if token, err := c.Cookie(sessionCookieName); err == nil && token != "" {
		sid, parseErr := h.parseSessionToken(token)
		if parseErr == nil {
			sess, loadErr := h.svc.Load(ctx, sid)
			switch {
			case loadErr == nil:
				c.Set(ctxSessionKey, sess)
				c.Next()
				return
			case !errors.Is(loadErr, models.ErrSessionNotFound):
				_ = c.AbortWithError(http.StatusInternalServerError, loadErr).SetMeta("session load")
				return
			}
			log.Debug("Session expired", zap.String("sessionID", sid))
		} else {
			log.Debug("Ignoring invalid session cookie", zap.Error(parseErr))
		}
		h.clearSessionCookie(c)
	}

	c.Set(ctxSessionKey, h.svc.Guest())
	c.Next()
}

// requireUser пускает в /chat только с действующим токеном.
func (h *Handler) requireUser(c *gin.Context) {
	current := currentSession(c)
	sess, err := h.svc.EnsureUser(c.Request.Context(), current.ID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAuth), errors.Is(err, models.ErrSessionNotFound):
			if current.Token != "" {
				h.setFlashMessage(c, "error", models.MsgSessionExpired)
			}
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetMeta("ensure user")
		}
		return
	}
	c.Set(ctxSessionKey, sess)
	c.Next()
}

func currentSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(ctxSessionKey); ok {
		if sess, ok := v.(*models.Session); ok {
			return sess
		}
	}
	return nil
}
