package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"storyweaver/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgStartFieldsMissing    = "Missing required fields: title, mode, style, userId"
	msgContinueFieldsMissing = "Missing required fields: message, storyId, config"
	msgStartFailed           = "Failed to start story"
	msgContinueFailed        = "Failed to continue story"

	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

type startStoryRequest struct {
	Title  string `json:"title" validate:"required"`
	Mode   string `json:"mode" validate:"required"`
	Style  string `json:"style" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type startStoryResponse struct {
	Success bool               `json:"success"`
	StoryID string             `json:"storyId"`
	Message string             `json:"message"`
	Config  models.StoryConfig `json:"config"`
}

type continueStoryRequest struct {
	Message string              `json:"message" validate:"required"`
	StoryID string              `json:"storyId" validate:"required"`
	Config  *models.StoryConfig `json:"config" validate:"required"`
}

type continueStoryResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	StoryID   string `json:"storyId"`
	Timestamp string `json:"timestamp"`
}

type apiError struct {
	Error string `json:"error"`
}

// handleStoryStart - POST /api/story/start, вступление к истории.
func (h *Handler) handleStoryStart(c *gin.Context) {
	var req startStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		mockAPIRequestsTotal.WithLabelValues("start", "400").Inc()
		c.JSON(http.StatusBadRequest, apiError{Error: msgStartFieldsMissing})
		return
	}

	cfg := models.StoryConfig{Title: req.Title, Mode: req.Mode, Style: req.Style, UserID: req.UserID}
	text, err := h.provider.Opening(c.Request.Context(), cfg)
	if err != nil {
		h.logger.Error("Error starting story", zap.String("userID", req.UserID), zap.Error(err))
		mockAPIRequestsTotal.WithLabelValues("start", "500").Inc()
		c.JSON(http.StatusInternalServerError, apiError{Error: msgStartFailed})
		return
	}

	mockAPIRequestsTotal.WithLabelValues("start", "200").Inc()
	c.JSON(http.StatusOK, startStoryResponse{
		Success: true,
		StoryID: newStoryID(h.now(), req.UserID),
		Message: text,
		Config:  cfg,
	})
}

// handleStoryContinue - POST /api/story/continue, следующий абзац.
func (h *Handler) handleStoryContinue(c *gin.Context) {
	var req continueStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validate.Struct(&req) != nil {
		mockAPIRequestsTotal.WithLabelValues("continue", "400").Inc()
		c.JSON(http.StatusBadRequest, apiError{Error: msgContinueFieldsMissing})
		return
	}

	text, err := h.provider.Continuation(c.Request.Context(), models.ContinueRequest{
		Message: req.Message,
		StoryID: req.StoryID,
		Config:  req.Config,
	})
	if err != nil {
		if errors.Is(err, c.Request.Context().Err()) {
			h.logger.Info("Client went away while continuing story", zap.String("storyID", req.StoryID))
		} else {
			h.logger.Error("Error continuing story", zap.String("storyID", req.StoryID), zap.Error(err))
		}
		mockAPIRequestsTotal.WithLabelValues("continue", "500").Inc()
		c.JSON(http.StatusInternalServerError, apiError{Error: msgContinueFailed})
		return
	}

	mockAPIRequestsTotal.WithLabelValues("continue", "200").Inc()
	c.JSON(http.StatusOK, continueStoryResponse{
		Success:   true,
		Message:   text,
		StoryID:   req.StoryID,
		Timestamp: h.now().UTC().Format(isoMillis),
	})
}

// newStoryID: story_<unix ms>_<первые 8 символов userId>.
func newStoryID(now time.Time, userID string) string {
	prefix := []rune(userID)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("story_%d_%s", now.UnixMilli(), string(prefix))
}
