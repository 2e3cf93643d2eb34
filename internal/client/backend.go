package client

import (
	"context"

	"storyweaver/internal/models"
)

// BackendGateway - HTTP-шлюз к внешнему бэкенду StoryWeaver.
// Каждая операция - один запрос, без повторов и backoff.
type BackendGateway interface {
	// WithAuth возвращает копию шлюза, привязанную к токену сессии.
	WithAuth(auth models.AuthContext) BackendGateway

	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, name, email, password string) error
	// FetchCurrentUser требует токен; любая ошибка означает, что сессия не авторизована.
	FetchCurrentUser(ctx context.Context) (*models.User, error)

	StartStory(ctx context.Context, prompt, userID string) (*models.StoryDraft, error)
	ReviseStory(ctx context.Context, draftID, instruction string) (*models.StoryDraft, error)
	ListDrafts(ctx context.Context, userID string) ([]models.StoryDraft, error)
	DeleteDraft(ctx context.Context, draftID string) error
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    flexString `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

type reviseRequest struct {
	DraftID     string `json:"draftId"`
	Instruction string `json:"instruction"`
}

// draftEnvelope - ответ /stories/generate и /drafts/revise.
type draftEnvelope struct {
	Message string    `json:"message"`
	Draft   *draftDTO `json:"draft"`
}

type draftDTO struct {
	ID        flexString `json:"id"`
	Title     string     `json:"title"`
	Prompt    string     `json:"prompt"`
	Content   string     `json:"content"`
	UserID    flexString `json:"userId"`
	UserIDAlt flexString `json:"user_id"`
	CreatedAt string     `json:"createdAt"`
	// некоторые версии бэкенда отдают snake_case
	CreatedAtAlt string `json:"created_at"`
}

func (d draftDTO) toModel() models.StoryDraft {
	draft := models.StoryDraft{
		ID:        string(d.ID),
		Title:     d.Title,
		Prompt:    d.Prompt,
		Content:   d.Content,
		UserID:    string(d.UserID),
		CreatedAt: d.CreatedAt,
	}
	if draft.UserID == "" {
		draft.UserID = string(d.UserIDAlt)
	}
	if draft.CreatedAt == "" {
		draft.CreatedAt = d.CreatedAtAlt
	}
	return draft
}

type draftsObject struct {
	Drafts []draftDTO `json:"drafts"`
}
