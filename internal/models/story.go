package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message - реплика в ленте чата. Ленты только дополняются.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Failed помечает пользовательское сообщение, на которое бэкенд ответил ошибкой.
	Failed bool `json:"failed,omitempty"`
}

func NewMessage(role Role, content string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
}

// StoryDraft - копия черновика, которым владеет бэкенд.
// Ревизия всегда создаёт новый черновик с новым ID.
type StoryDraft struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Prompt    string `json:"prompt"`
	Content   string `json:"content"`
	UserID    string `json:"userId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// CreatedTime разбирает CreatedAt; бэкенд присылает ISO8601 с зоной или без.
func (d StoryDraft) CreatedTime() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, d.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StoryConfig - параметры формы новой истории.
type StoryConfig struct {
	Title  string `json:"title"`
	Mode   string `json:"mode"`
	Style  string `json:"style"`
	UserID string `json:"userId"`
}

type ContinueRequest struct {
	Message string       `json:"message"`
	StoryID string       `json:"storyId"`
	Config  *StoryConfig `json:"config"`
}
