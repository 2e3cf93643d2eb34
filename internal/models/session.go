package models

import "time"

type ViewMode string

const (
	ViewNewStory ViewMode = "new_story"
	ViewChat     ViewMode = "chat"
	ViewHistory  ViewMode = "history"
)

// Session - состояние одной браузерной сессии.
// Поля меняются только действиями StorySessionService.
type Session struct {
	ID         string   `json:"id"`
	ViewMode   ViewMode `json:"viewMode"`
	User       *User    `json:"user,omitempty"`
	Token      string   `json:"token,omitempty"`
	RememberMe bool     `json:"rememberMe,omitempty"`

	CurrentStoryID string    `json:"currentStoryId,omitempty"`
	Messages       []Message `json:"messages"`
	IsLoading      bool      `json:"isLoading"`
	LoadingSince   time.Time `json:"loadingSince,omitempty"`
	ErrorText      string    `json:"errorText,omitempty"`

	// История: закэшированный список и открытый черновик со своей лентой ревизий.
	Drafts          []StoryDraft `json:"drafts,omitempty"`
	DraftsLoaded    bool         `json:"draftsLoaded,omitempty"`
	SelectedDraftID string       `json:"selectedDraftId,omitempty"`
	DraftThread     []Message    `json:"draftThread,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		ViewMode:  ViewNewStory,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) AuthContext() AuthContext {
	return AuthContext{Token: s.Token}
}

// SelectedDraft ищет выбранный черновик в закэшированном списке.
func (s *Session) SelectedDraft() *StoryDraft {
	if s.SelectedDraftID == "" {
		return nil
	}
	for i := range s.Drafts {
		if s.Drafts[i].ID == s.SelectedDraftID {
			return &s.Drafts[i]
		}
	}
	return nil
}

// ResetStory отбрасывает текущую историю целиком, без возможности отмены.
func (s *Session) ResetStory() {
	s.CurrentStoryID = ""
	s.Messages = []Message{}
}

func (s *Session) ClearSelection() {
	s.SelectedDraftID = ""
	s.DraftThread = nil
}

// ClearAuth забывает токен и пользователя, история сессии тоже сбрасывается.
func (s *Session) ClearAuth() {
	s.Token = ""
	s.RememberMe = false
	s.User = nil
	s.ViewMode = ViewNewStory
	s.ResetStory()
	s.ClearSelection()
	s.Drafts = nil
	s.DraftsLoaded = false
	s.IsLoading = false
	s.LoadingSince = time.Time{}
}

// Clone возвращает глубокую копию, чтобы хранилища не делили срезы с вызывающим.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.Messages = append([]Message(nil), s.Messages...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	if s.Drafts != nil {
		c.Drafts = append([]StoryDraft(nil), s.Drafts...)
	}
	if s.DraftThread != nil {
		c.DraftThread = append([]Message(nil), s.DraftThread...)
	}
	return &c
}
