package handler

import (
	"context"
	"errors"
	"net/http"

	"storyweaver/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sessionAction func(ctx context.Context, sessionID string) (*models.Session, error)

func (h *Handler) showChat(c *gin.Context) {
	sess := currentSession(c)
	page := newChatPage(sess, h.svc.Loading(sess), h.flash(c))
	if page.IsNewStory {
		if form, ok := findQuickStart(c.Query("template")); ok {
			page.Prefill = form
		}
	}
	c.HTML(http.StatusOK, "chat.html", page)
}

// runAction выполняет действие и делает redirect (POST-redirect-GET).
// Ошибки действия показываются на странице через ErrorText или flash.
func (h *Handler) runAction(c *gin.Context, action string, fn sessionAction) {
	sid := currentSession(c).ID
	sess, err := fn(c.Request.Context(), sid)
	webActionsTotal.WithLabelValues(action, actionOutcome(err)).Inc()

	if err == nil {
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}

	log := h.logger.With(zap.String("action", action), zap.String("sessionID", sid))
	switch {
	case errors.Is(err, models.ErrAuth):
		log.Info("Action rejected, session is no longer authenticated", zap.Error(err))
		h.setFlashMessage(c, "error", models.UserMessage(err))
		c.Redirect(http.StatusSeeOther, "/login")
	case errors.Is(err, models.ErrSessionNotFound):
		h.clearSessionCookie(c)
		c.Redirect(http.StatusSeeOther, "/login")
	case sess == nil:
		// хранилище недоступно, сессию сохранить не удалось
		log.Error("Action failed without a session", zap.Error(err))
		h.setFlashMessage(c, "error", models.MsgUnexpected)
		c.Redirect(http.StatusSeeOther, "/chat")
	default:
		log.Debug("Action finished with error", zap.Error(err))
		if sess.ErrorText == "" {
			h.setFlashMessage(c, "error", models.UserMessage(err))
		}
		c.Redirect(http.StatusSeeOther, "/chat")
	}
}

func actionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrRequestInFlight):
		return "in_flight"
	default:
		return "error"
	}
}

func (h *Handler) handleStartStory(c *gin.Context) {
	var form startForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Warn("Failed to bind start story form", zap.Error(err))
	}
	prompt := form.composePrompt()
	h.runAction(c, "start_story", func(ctx context.Context, id string) (*models.Session, error) {
		return h.svc.StartStory(ctx, id, prompt)
	})
}

func (h *Handler) handleSendMessage(c *gin.Context) {
	message := c.PostForm("message")
	h.runAction(c, "send_message", func(ctx context.Context, id string) (*models.Session, error) {
		return h.svc.SendMessage(ctx, id, message)
	})
}

func (h *Handler) handleNewStory(c *gin.Context) {
	h.runAction(c, "new_story", h.svc.ShowNewStory)
}

func (h *Handler) handleResumeChat(c *gin.Context) {
	h.runAction(c, "resume_chat", h.svc.ResumeChat)
}

func (h *Handler) handleShowHistory(c *gin.Context) {
	h.runAction(c, "show_history", h.svc.ShowHistory)
}

func (h *Handler) handleSelectDraft(c *gin.Context) {
	draftID := c.Param("id")
	h.runAction(c, "select_draft", func(ctx context.Context, id string) (*models.Session, error) {
		return h.svc.SelectDraft(ctx, id, draftID)
	})
}

func (h *Handler) handleDeselectDraft(c *gin.Context) {
	h.runAction(c, "deselect_draft", h.svc.ClearSelection)
}

// handleReviseDraft сначала выбирает черновик из URL, если выбран другой.
func (h *Handler) handleReviseDraft(c *gin.Context) {
	draftID := c.Param("id")
	message := c.PostForm("message")
	h.runAction(c, "revise_draft", func(ctx context.Context, id string) (*models.Session, error) {
		if sess, err := h.svc.SelectDraft(ctx, id, draftID); err != nil {
			return sess, err
		}
		return h.svc.ReviseSelected(ctx, id, message)
	})
}

func (h *Handler) handleDeleteDraft(c *gin.Context) {
	draftID := c.Param("id")
	h.runAction(c, "delete_draft", func(ctx context.Context, id string) (*models.Session, error) {
		return h.svc.DeleteDraft(ctx, id, draftID)
	})
}
