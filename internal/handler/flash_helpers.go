package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	flashCookieName = "sw_flash"
	flashCookieTTL  = 30 * time.Second
)

// FlashMessage переживает один редирект.
type FlashMessage struct {
	Type    string `json:"type"` // success, error, info
	Message string `json:"message"`
}

// setFlashMessage кладёт в куку base64(HMAC-SHA256 || json).
func (h *Handler) setFlashMessage(c *gin.Context, msgType, message string) {
	jsonData, err := json.Marshal(FlashMessage{Type: msgType, Message: message})
	if err != nil {
		h.logger.Error("Failed to marshal flash message", zap.Error(err))
		return
	}
	mac := hmac.New(sha256.New, h.cfg.SessionSecret)
	mac.Write(jsonData)
	signed := append(mac.Sum(nil), jsonData...)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, base64.URLEncoding.EncodeToString(signed),
		int(flashCookieTTL.Seconds()), "/", "", h.cfg.CookieSecure, true)
}

// popFlashMessage читает и сразу удаляет куку. Без куки возвращает nil, nil.
func (h *Handler) popFlashMessage(c *gin.Context) (*FlashMessage, error) {
	cookie, err := c.Cookie(flashCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flash cookie: %w", err)
	}
	c.SetCookie(flashCookieName, "", -1, "/", "", h.cfg.CookieSecure, true)

	signed, err := base64.URLEncoding.DecodeString(cookie)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flash cookie: %w", err)
	}
	if len(signed) < sha256.Size {
		return nil, errors.New("invalid flash cookie length")
	}
	receivedSig, jsonData := signed[:sha256.Size], signed[sha256.Size:]

	mac := hmac.New(sha256.New, h.cfg.SessionSecret)
	mac.Write(jsonData)
	if !hmac.Equal(receivedSig, mac.Sum(nil)) {
		return nil, errors.New("invalid flash cookie signature")
	}

	var flash FlashMessage
	if err := json.Unmarshal(jsonData, &flash); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flash message: %w", err)
	}
	return &flash, nil
}

// flash - обёртка для страниц: ошибки чтения только логируются.
func (h *Handler) flash(c *gin.Context) *FlashMessage {
	msg, err := h.popFlashMessage(c)
	if err != nil {
		h.logger.Warn("Dropping invalid flash cookie", zap.Error(err))
	}
	return msg
}
