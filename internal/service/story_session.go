package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"storyweaver/internal/client"
	"storyweaver/internal/models"
	"storyweaver/internal/session"

	"go.uber.org/zap"
)

// MaxMessageLength - лимит поля ввода в чате (в символах).
const MaxMessageLength = 500

const (
	msgEmptyPrompt       = "Please describe the story you want to create."
	msgEmptyMessage      = "Please enter a message."
	msgMessageTooLong    = "Messages are limited to 500 characters."
	msgNoOpenStory       = "Start a story before sending messages."
	msgStartFromNewStory = "Open a new story before starting another one."
	msgSelectDraft       = "Select a story from your history first."
	msgCredentials       = "Please enter your email and password."
	msgSignupFields      = "Please fill in your name, email and password."
)

type Options struct {
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
	// LoadingTimeout - через это время IsLoading считается брошенным
	// (например, процесс упал посреди запроса).
	LoadingTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SessionTTL <= 0 {
		o.SessionTTL = 24 * time.Hour
	}
	if o.RememberMeTTL <= 0 {
		o.RememberMeTTL = 30 * 24 * time.Hour
	}
	if o.LoadingTimeout <= 0 {
		o.LoadingTimeout = 2 * time.Minute
	}
	return o
}

// StorySessionService - контроллер сессии: переходы между видами
// New Story / Chat / History и последовательность запросов к бэкенду.
type StorySessionService struct {
	store   session.Store
	locker  *session.Locker
	gateway client.BackendGateway
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

func NewStorySessionService(store session.Store, gateway client.BackendGateway, logger *zap.Logger, opts Options) *StorySessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorySessionService{
		store:   store,
		locker:  session.NewLocker(),
		gateway: gateway,
		logger:  logger.Named("StorySessionService"),
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// Guest - сессия анонимного посетителя. В хранилище она не попадает:
// у неё нет ID, запись появляется только при входе.
func (s *StorySessionService) Guest() *models.Session {
	return models.NewSession("", s.now())
}

func (s *StorySessionService) Load(ctx context.Context, id string) (*models.Session, error) {
	return s.store.Get(ctx, id)
}

// TTL - срок жизни сессии: с "запомнить меня" он длиннее.
func (s *StorySessionService) TTL(sess *models.Session) time.Duration {
	if sess.RememberMe {
		return s.opts.RememberMeTTL
	}
	return s.opts.SessionTTL
}

// update - read-modify-write под блокировкой сессии. Сессия сохраняется
// и при ошибке fn, чтобы ErrorText дошёл до страницы.
func (s *StorySessionService) update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	unlock := s.locker.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fnErr := fn(sess)
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess, s.TTL(sess)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, fnErr
}

func requireAuth(sess *models.Session) error {
	if sess.Token == "" || sess.User == nil {
		return models.NewAppError(models.ErrAuth, models.MsgSessionExpired, nil)
	}
	return nil
}

func (s *StorySessionService) loadingActive(sess *models.Session) bool {
	return sess.IsLoading && s.now().Sub(sess.LoadingSince) < s.opts.LoadingTimeout
}

// Loading сообщает, идёт ли сейчас запрос к бэкенду (зависшая блокировка не в счёт).
func (s *StorySessionService) Loading(sess *models.Session) bool {
	return s.loadingActive(sess)
}

// begin ставит мягкую блокировку IsLoading. Пока она стоит, любое действие,
// меняющее историю, получает ErrRequestInFlight.
func (s *StorySessionService) begin(ctx context.Context, id string, check func(*models.Session) error) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) error {
		if err := requireAuth(sess); err != nil {
			return err
		}
		if s.loadingActive(sess) {
			rejectedInFlightTotal.Inc()
			return models.ErrRequestInFlight
		}
		if err := check(sess); err != nil {
			sess.ErrorText = models.UserMessage(err)
			return err
		}
		sess.IsLoading = true
		sess.LoadingSince = s.now()
		sess.ErrorText = ""
		return nil
	})
}

// finish снимает IsLoading и применяет результат к свежей копии сессии.
// Отмена запроса клиентом не должна оставить сессию заблокированной.
func (s *StorySessionService) finish(ctx context.Context, id string, apply func(*models.Session)) (*models.Session, error) {
	return s.update(context.WithoutCancel(ctx), id, func(sess *models.Session) error {
		sess.IsLoading = false
		sess.LoadingSince = time.Time{}
		apply(sess)
		return nil
	})
}

func (s *StorySessionService) fail(sess *models.Session, action string, err error) {
	s.logger.Warn("Story action failed",
		zap.String("action", action),
		zap.String("sessionID", sess.ID),
		zap.Error(err),
	)
	if errors.Is(err, models.ErrAuth) {
		sess.ClearAuth()
	}
	sess.ErrorText = models.UserMessage(err)
}

func validationError(message string, fields ...string) *models.AppError {
	return &models.AppError{Kind: models.ErrValidation, Message: message, Fields: fields}
}

func validateInstruction(instruction string) error {
	if instruction == "" {
		return validationError(msgEmptyMessage, "instruction")
	}
	if utf8.RuneCountInString(instruction) > MaxMessageLength {
		return validationError(msgMessageTooLong, "instruction")
	}
	return nil
}

// StartStory: NewStory -> Chat. Лента = [промпт пользователя, ответ бэкенда].
func (s *StorySessionService) StartStory(ctx context.Context, id, prompt string) (*models.Session, error) {
	prompt = strings.TrimSpace(prompt)
	sess, err := s.begin(ctx, id, func(sess *models.Session) error {
		if sess.ViewMode != models.ViewNewStory {
			return validationError(msgStartFromNewStory)
		}
		if prompt == "" {
			return validationError(msgEmptyPrompt, "prompt")
		}
		return nil
	})
	if err != nil {
		return sess, err
	}

	sentAt := s.now()
	draft, callErr := s.gateway.WithAuth(sess.AuthContext()).StartStory(ctx, prompt, sess.User.ID)
	storiesStartedTotal.WithLabelValues(outcomeLabel(callErr)).Inc()

	result, err := s.finish(ctx, id, func(sess *models.Session) {
		if callErr != nil {
			s.fail(sess, "start_story", callErr)
			return
		}
		sess.Messages = []models.Message{
			models.NewMessage(models.RoleUser, prompt, sentAt),
			models.NewMessage(models.RoleAssistant, draft.Content, s.now()),
		}
		sess.CurrentStoryID = draft.ID
		sess.ErrorText = ""
		// если пользователь ушёл в историю во время запроса, вид не переключаем
		if sess.ViewMode == models.ViewNewStory {
			sess.ViewMode = models.ViewChat
		}
		s.logger.Info("Story started", zap.String("sessionID", sess.ID), zap.String("draftID", draft.ID))
	})
	if err != nil {
		return result, err
	}
	return result, callErr
}

// SendMessage: Chat -> Chat. Сообщение пользователя добавляется сразу,
// ответ - после успешной ревизии; текущим становится новый черновик.
func (s *StorySessionService) SendMessage(ctx context.Context, id, instruction string) (*models.Session, error) {
	instruction = strings.TrimSpace(instruction)
	var (
		draftID    string
		optimistic models.Message
	)
	sess, err := s.begin(ctx, id, func(sess *models.Session) error {
		if sess.ViewMode != models.ViewChat || sess.CurrentStoryID == "" {
			return validationError(msgNoOpenStory)
		}
		if err := validateInstruction(instruction); err != nil {
			return err
		}
		optimistic = models.NewMessage(models.RoleUser, instruction, s.now())
		sess.Messages = append(sess.Messages, optimistic)
		draftID = sess.CurrentStoryID
		return nil
	})
	if err != nil {
		return sess, err
	}

	draft, callErr := s.gateway.WithAuth(sess.AuthContext()).ReviseStory(ctx, draftID, instruction)
	storyRevisionsTotal.WithLabelValues(string(models.ViewChat), outcomeLabel(callErr)).Inc()

	result, err := s.finish(ctx, id, func(sess *models.Session) {
		if callErr != nil {
			markFailed(sess.Messages, optimistic.ID)
			s.fail(sess, "send_message", callErr)
			return
		}
		if sess.CurrentStoryID != draftID {
			s.logger.Info("Revision arrived for a story that is no longer open, dropping it",
				zap.String("sessionID", sess.ID), zap.String("draftID", draftID), zap.String("newDraftID", draft.ID))
			return
		}
		sess.Messages = append(sess.Messages, models.NewMessage(models.RoleAssistant, draft.Content, s.now()))
		sess.CurrentStoryID = draft.ID
		sess.ErrorText = ""
	})
	if err != nil {
		return result, err
	}
	return result, callErr
}

// ShowHistory: любой вид -> History, с загрузкой списка черновиков.
func (s *StorySessionService) ShowHistory(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAuth(sess); err != nil {
		return sess, err
	}

	drafts, callErr := s.gateway.WithAuth(sess.AuthContext()).ListDrafts(ctx, sess.User.ID)

	result, err := s.update(ctx, id, func(sess *models.Session) error {
		sess.ViewMode = models.ViewHistory
		sess.ClearSelection()
		if callErr != nil {
			sess.DraftsLoaded = false
			s.fail(sess, "show_history", callErr)
			return nil
		}
		sess.Drafts = drafts
		sess.DraftsLoaded = true
		sess.ErrorText = ""
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, callErr
}

// ShowNewStory: любой вид -> NewStory. Лента и текущая история отбрасываются.
func (s *StorySessionService) ShowNewStory(ctx context.Context, id string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) error {
		if s.loadingActive(sess) {
			rejectedInFlightTotal.Inc()
			return models.ErrRequestInFlight
		}
		sess.ViewMode = models.ViewNewStory
		sess.ResetStory()
		sess.ClearSelection()
		sess.ErrorText = ""
		return nil
	})
}

// ResumeChat возвращает из истории к открытой истории, если она есть.
func (s *StorySessionService) ResumeChat(ctx context.Context, id string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) error {
		if sess.CurrentStoryID == "" {
			err := validationError(msgNoOpenStory)
			sess.ErrorText = err.Message
			return err
		}
		sess.ViewMode = models.ViewChat
		sess.ClearSelection()
		sess.ErrorText = ""
		return nil
	})
}

// SelectDraft открывает черновик из закэшированного списка.
func (s *StorySessionService) SelectDraft(ctx context.Context, id, draftID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) error {
		sess.ViewMode = models.ViewHistory
		if sess.SelectedDraftID == draftID {
			return nil
		}
		sess.ClearSelection()
		for _, d := range sess.Drafts {
			if d.ID == draftID {
				sess.SelectedDraftID = draftID
				sess.ErrorText = ""
				return nil
			}
		}
		sess.ErrorText = msgSelectDraft
		return models.ErrDraftNotFound
	})
}

func (s *StorySessionService) ClearSelection(ctx context.Context, id string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) error {
		sess.ClearSelection()
		sess.ErrorText = ""
		return nil
	})
}

// ReviseSelected - ревизия выбранного в истории черновика. Новый черновик
// встаёт в начало списка и становится выбранным.
func (s *StorySessionService) ReviseSelected(ctx context.Context, id, instruction string) (*models.Session, error) {
	instruction = strings.TrimSpace(instruction)
	var (
		draftID    string
		optimistic models.Message
	)
	sess, err := s.begin(ctx, id, func(sess *models.Session) error {
		if sess.ViewMode != models.ViewHistory || sess.SelectedDraft() == nil {
			return validationError(msgSelectDraft)
		}
		if err := validateInstruction(instruction); err != nil {
			return err
		}
		optimistic = models.NewMessage(models.RoleUser, instruction, s.now())
		sess.DraftThread = append(sess.DraftThread, optimistic)
		draftID = sess.SelectedDraftID
		return nil
	})
	if err != nil {
		return sess, err
	}

	draft, callErr := s.gateway.WithAuth(sess.AuthContext()).ReviseStory(ctx, draftID, instruction)
	storyRevisionsTotal.WithLabelValues(string(models.ViewHistory), outcomeLabel(callErr)).Inc()

	result, err := s.finish(ctx, id, func(sess *models.Session) {
		if callErr != nil {
			markFailed(sess.DraftThread, optimistic.ID)
			s.fail(sess, "revise_selected", callErr)
			return
		}
		revised := s.completeDraft(*draft, sess, instruction)
		sess.Drafts = append([]models.StoryDraft{revised}, sess.Drafts...)
		reply := models.NewMessage(models.RoleAssistant, revised.Content, s.now())

		if sess.SelectedDraftID == draftID {
			sess.DraftThread = append(sess.DraftThread, reply)
			sess.SelectedDraftID = revised.ID
		}
		if sess.CurrentStoryID == draftID {
			sess.Messages = append(sess.Messages, optimistic, reply)
			sess.CurrentStoryID = revised.ID
		}
		sess.ErrorText = ""
	})
	if err != nil {
		return result, err
	}
	return result, callErr
}

// completeDraft дополняет ответ ревизии полями, которые бэкенд может не прислать.
func (s *StorySessionService) completeDraft(d models.StoryDraft, sess *models.Session, instruction string) models.StoryDraft {
	if d.Prompt == "" {
		d.Prompt = instruction
	}
	if d.UserID == "" && sess.User != nil {
		d.UserID = sess.User.ID
	}
	if d.CreatedAt == "" {
		d.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}
	if strings.TrimSpace(d.Title) == "" {
		d.Title = client.SynthesizeTitle(d.Content)
	}
	return d
}

// DeleteDraft удаляет черновик и убирает его из локального списка без перезагрузки.
func (s *StorySessionService) DeleteDraft(ctx context.Context, id, draftID string) (*models.Session, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAuth(sess); err != nil {
		return sess, err
	}

	callErr := s.gateway.WithAuth(sess.AuthContext()).DeleteDraft(ctx, draftID)

	result, err := s.update(context.WithoutCancel(ctx), id, func(sess *models.Session) error {
		if callErr != nil {
			s.fail(sess, "delete_draft", callErr)
			return nil
		}
		draftsDeletedTotal.Inc()
		kept := sess.Drafts[:0]
		for _, d := range sess.Drafts {
			if d.ID != draftID {
				kept = append(kept, d)
			}
		}
		sess.Drafts = kept
		if sess.CurrentStoryID == draftID {
			sess.ResetStory()
		}
		if sess.SelectedDraftID == draftID {
			sess.ClearSelection()
		}
		sess.ErrorText = ""
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, callErr
}

func markFailed(msgs []models.Message, id string) {
	for i := range msgs {
		if msgs[i].ID == id {
			msgs[i].Failed = true
			return
		}
	}
}
