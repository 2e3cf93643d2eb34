package handler

import (
	"strings"
	"unicode/utf8"

	"storyweaver/internal/models"
	"storyweaver/internal/service"
)

const previewLength = 150

type option struct {
	Value string
	Label string
}

var storyModes = []option{
	{"Story", "Interactive Story"},
	{"Adventure", "Choose Your Adventure"},
	{"Collaborative", "Collaborative Writing"},
	{"Guided", "Guided Narrative"},
}

var storyStyles = []option{
	{"Fantasy", "High Fantasy"},
	{"Urban Fantasy", "Urban Fantasy"},
	{"Dark Fantasy", "Dark Fantasy"},
	{"Epic Fantasy", "Epic Fantasy"},
	{"Fairy Tale", "Fairy Tale"},
	{"Mythology", "Mythology"},
}

type quickStart struct {
	Key         string
	Label       string
	Description string
	Form        startForm
}

var quickStarts = []quickStart{
	{Key: "dragons-quest", Label: "Epic Quest", Description: "Dragons, heroes, magic",
		Form: startForm{Title: "The Dragon's Quest", Mode: "Adventure", Style: "Epic Fantasy"}},
	{Key: "city-of-shadows", Label: "Urban Magic", Description: "Modern world, hidden magic",
		Form: startForm{Title: "City of Shadows", Mode: "Story", Style: "Urban Fantasy"}},
	{Key: "enchanted-forest", Label: "Fairy Tale", Description: "Classic magical stories",
		Form: startForm{Title: "The Enchanted Forest", Mode: "Collaborative", Style: "Fairy Tale"}},
}

func findQuickStart(key string) (startForm, bool) {
	for _, q := range quickStarts {
		if q.Key == key {
			return q.Form, true
		}
	}
	return startForm{}, false
}

// startForm - поля формы New Story.
type startForm struct {
	Title  string `form:"title"`
	Mode   string `form:"mode"`
	Style  string `form:"style"`
	Prompt string `form:"prompt"`
}

// composePrompt собирает промпт для бэкенда из настроек и свободного текста.
func (f startForm) composePrompt() string {
	prompt := strings.TrimSpace(f.Prompt)
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return prompt
	}
	var b strings.Builder
	b.WriteString("Title: " + title + ".")
	if f.Mode != "" {
		b.WriteString(" Mode: " + f.Mode + ".")
	}
	if f.Style != "" {
		b.WriteString(" Style: " + f.Style + ".")
	}
	if prompt != "" {
		b.WriteString("\n\n" + prompt)
	}
	return b.String()
}

type pageBase struct {
	Title       string
	User        *models.User
	Flash       *FlashMessage
	AutoRefresh bool
}

type authPage struct {
	pageBase
	Error      string
	Name       string
	Email      string
	RememberMe bool
}

type messageView struct {
	Role    string
	Content string
	Time    string
	Failed  bool
}

type draftItem struct {
	ID      string
	Title   string
	Preview string
	Created string
}

type draftDetail struct {
	ID      string
	Title   string
	Prompt  string
	Content string
	Created string
}

type chatPage struct {
	pageBase
	IsNewStory bool
	IsChat     bool
	IsHistory  bool
	IsLoading  bool
	CanResume  bool
	ErrorText  string

	Messages []messageView

	Drafts       []draftItem
	DraftsLoaded bool
	Selected     *draftDetail
	Thread       []messageView

	Modes       []option
	Styles      []option
	QuickStarts []quickStart
	Prefill     startForm
	MaxLength   int
}

func newChatPage(sess *models.Session, loading bool, flash *FlashMessage) chatPage {
	page := chatPage{
		pageBase: pageBase{
			Title:       "Chat",
			User:        sess.User,
			Flash:       flash,
			AutoRefresh: loading,
		},
		IsNewStory:   sess.ViewMode == models.ViewNewStory,
		IsChat:       sess.ViewMode == models.ViewChat,
		IsHistory:    sess.ViewMode == models.ViewHistory,
		IsLoading:    loading,
		CanResume:    sess.ViewMode != models.ViewChat && sess.CurrentStoryID != "",
		ErrorText:    sess.ErrorText,
		Messages:     messageViews(sess.Messages),
		DraftsLoaded: sess.DraftsLoaded,
		Thread:       messageViews(sess.DraftThread),
		Modes:        storyModes,
		Styles:       storyStyles,
		QuickStarts:  quickStarts,
		Prefill:      startForm{Mode: storyModes[0].Value, Style: storyStyles[0].Value},
		MaxLength:    service.MaxMessageLength,
	}
	for _, d := range sess.Drafts {
		page.Drafts = append(page.Drafts, draftItem{
			ID:      d.ID,
			Title:   d.Title,
			Preview: preview(d.Content, previewLength),
			Created: formatCreated(d),
		})
	}
	if d := sess.SelectedDraft(); d != nil {
		page.Selected = &draftDetail{
			ID:      d.ID,
			Title:   d.Title,
			Prompt:  d.Prompt,
			Content: d.Content,
			Created: formatCreated(*d),
		}
	}
	return page
}

func messageViews(msgs []models.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{
			Role:    string(m.Role),
			Content: m.Content,
			Time:    m.Timestamp.Format("15:04"),
			Failed:  m.Failed,
		})
	}
	return out
}

// preview обрезает текст до n символов (рун), добавляя многоточие.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

func formatCreated(d models.StoryDraft) string {
	if t, ok := d.CreatedTime(); ok {
		return t.Format("Jan 2, 2006 15:04")
	}
	return d.CreatedAt
}
