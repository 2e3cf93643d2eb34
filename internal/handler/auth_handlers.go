package handler

import (
	"errors"
	"net/http"

	"storyweaver/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgRegistered = "Registration successful. Please sign in."

func (h *Handler) showLanding(c *gin.Context) {
	if currentSession(c).Token != "" {
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	c.HTML(http.StatusOK, "landing.html", pageBase{Flash: h.flash(c)})
}

func (h *Handler) showLogin(c *gin.Context) {
	if currentSession(c).Token != "" {
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	c.HTML(http.StatusOK, "login.html", authPage{pageBase: pageBase{Title: "Sign in", Flash: h.flash(c)}})
}

func (h *Handler) handleLogin(c *gin.Context) {
	email := c.PostForm("email")
	rememberMe := c.PostForm("remember_me") == "on"

	sess, err := h.svc.Login(c.Request.Context(), currentSession(c).ID, email, c.PostForm("password"), rememberMe)
	if err != nil {
		status := http.StatusOK
		if errors.Is(err, models.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		c.HTML(status, "login.html", authPage{
			pageBase:   pageBase{Title: "Sign in"},
			Error:      models.UserMessage(err),
			Email:      email,
			RememberMe: rememberMe,
		})
		return
	}

	sessionsCreatedTotal.Inc()
	h.logger.Info("User signed in", zap.String("sessionID", sess.ID), zap.Bool("rememberMe", rememberMe))
	h.setSessionCookie(c, sess)
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *Handler) showSignup(c *gin.Context) {
	if currentSession(c).Token != "" {
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	c.HTML(http.StatusOK, "signup.html", authPage{pageBase: pageBase{Title: "Sign up", Flash: h.flash(c)}})
}

func (h *Handler) handleSignup(c *gin.Context) {
	name, email := c.PostForm("name"), c.PostForm("email")
	if err := h.svc.Register(c.Request.Context(), name, email, c.PostForm("password")); err != nil {
		c.HTML(http.StatusOK, "signup.html", authPage{
			pageBase: pageBase{Title: "Sign up"},
			Error:    models.UserMessage(err),
			Name:     name,
			Email:    email,
		})
		return
	}
	h.setFlashMessage(c, "success", msgRegistered)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) handleLogout(c *gin.Context) {
	sess := currentSession(c)
	if err := h.svc.Logout(c.Request.Context(), sess.ID); err != nil {
		h.logger.Warn("Failed to delete session on logout", zap.String("sessionID", sess.ID), zap.Error(err))
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/")
}
