package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storyweaver/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Login получает токен и начинает сессию с чистого листа под новым ID.
// Прежняя сессия (если была) удаляется, её кука больше ничего не открывает.
func (s *StorySessionService) Login(ctx context.Context, id, email, password string, rememberMe bool) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if missing := missingFields(map[string]string{"email": email, "password": password}, "email", "password"); len(missing) > 0 {
		return nil, validationError(msgCredentials, missing...)
	}

	token, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		s.logger.Info("Login rejected", zap.String("sessionID", id), zap.Error(err))
		return nil, err
	}

	sess := models.NewSession(uuid.NewString(), s.now())
	sess.Token = token
	sess.RememberMe = rememberMe
	if err := s.store.Save(ctx, sess, s.TTL(sess)); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if id != "" {
		if err := s.Logout(ctx, id); err != nil {
			s.logger.Warn("Failed to drop pre-login session", zap.String("sessionID", id), zap.Error(err))
		}
	}
	s.logger.Debug("Session created", zap.String("sessionID", sess.ID))
	return sess, nil
}

// Register не меняет сессию: после регистрации пользователь входит отдельно.
func (s *StorySessionService) Register(ctx context.Context, name, email, password string) error {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if missing := missingFields(map[string]string{"name": name, "email": email, "password": password}, "name", "email", "password"); len(missing) > 0 {
		return validationError(msgSignupFields, missing...)
	}
	if err := s.gateway.Register(ctx, name, email, password); err != nil {
		s.logger.Info("Registration rejected", zap.String("email", email), zap.Error(err))
		return err
	}
	s.logger.Info("User registered", zap.String("email", email))
	return nil
}

// Logout удаляет сессию целиком, токен забывается вместе с ней.
func (s *StorySessionService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	unlock := s.locker.Lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

// EnsureUser один раз за сессию запрашивает текущего пользователя.
// При любой ошибке токен удаляется, а вызывающий отправляет на /login.
func (s *StorySessionService) EnsureUser(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return sess, models.NewAppError(models.ErrAuth, models.MsgSessionExpired, errors.New("not signed in"))
	}
	if sess.User != nil {
		return sess, nil
	}

	token := sess.Token
	user, callErr := s.gateway.WithAuth(sess.AuthContext()).FetchCurrentUser(ctx)

	return s.update(ctx, id, func(sess *models.Session) error {
		if sess.Token != token {
			// сессию успели перелогинить параллельным запросом
			return requireAuth(sess)
		}
		if callErr != nil {
			s.logger.Warn("Current user check failed, clearing token", zap.String("sessionID", id), zap.Error(callErr))
			sess.ClearAuth()
			return models.NewAppError(models.ErrAuth, models.MsgSessionExpired, callErr)
		}
		sess.User = user
		return nil
	})
}

func missingFields(values map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
