package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storyweaver/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewContentProvider_Selects(t *testing.T) {
	p, err := NewContentProvider(ProviderConfig{Type: "canned"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &CannedProvider{}, p)

	p, err = NewContentProvider(ProviderConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CannedProvider{}, p)

	_, err = NewContentProvider(ProviderConfig{Type: "openai"}, zap.NewNop())
	assert.Error(t, err, "api key is required")

	p, err = NewContentProvider(ProviderConfig{Type: "ollama", BaseURL: "http://localhost:11434/v1"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ollamaProvider{}, p)

	_, err = NewContentProvider(ProviderConfig{Type: "gemini"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenAIProvider_Opening(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Once upon a time..."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	p, err := NewContentProvider(ProviderConfig{Type: "openai", APIKey: "sk-test", BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	text, err := p.Opening(context.Background(), models.StoryConfig{Title: "Crown", Mode: "Adventure", Style: "Epic Fantasy"})
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time...", text)

	assert.Equal(t, "m", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], "Story title: Crown")
}

func TestOpenAIProvider_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Continuation(context.Background(), models.ContinueRequest{Message: "go"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestOllamaProvider_Continuation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"The door creaks open."},"done":true,"prompt_eval_count":12,"eval_count":6}` + "\n"))
	}))
	defer srv.Close()

	p, err := newOllamaProvider(ProviderConfig{BaseURL: srv.URL + "/v1/", Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	text, err := p.Continuation(context.Background(), models.ContinueRequest{
		Message: "I open the door",
		Config:  &models.StoryConfig{Title: "Keep", Style: "Mystery"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The door creaks open.", text)
}

func TestOllamaProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	p, err := newOllamaProvider(ProviderConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Opening(context.Background(), models.StoryConfig{Title: "T"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestContinuationInput(t *testing.T) {
	in := continuationInput(models.ContinueRequest{Message: "run", Config: &models.StoryConfig{Title: "T", Style: "S"}})
	assert.Contains(t, in, "Story title: T")
	assert.Contains(t, in, "The reader says: run")

	bare := continuationInput(models.ContinueRequest{Message: "run"})
	assert.NotContains(t, bare, "Story title")
}
