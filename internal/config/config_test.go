package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := load(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
	assert.Equal(t, "canned", cfg.ContentProvider)
	assert.Equal(t, time.Second, cfg.MinDelay)
	assert.Equal(t, 3*time.Second, cfg.MaxDelay)
	assert.Equal(t, uint(30), cfg.RateLimitPerMinute)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_TrimsBackendURL(t *testing.T) {
	t.Setenv("SESSION_SECRET", "x")
	t.Setenv("BACKEND_URL", "https://api.example.com/")

	cfg, err := load(nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad provider", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "x")
		t.Setenv("CONTENT_PROVIDER", "markov")
		_, err := load(nil, t.TempDir())
		assert.ErrorContains(t, err, "invalid configuration")
	})
	t.Run("openai without key", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "x")
		t.Setenv("CONTENT_PROVIDER", "openai")
		_, err := load(nil, t.TempDir())
		assert.ErrorContains(t, err, "AI_API_KEY")
	})
	t.Run("max delay below min", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "x")
		t.Setenv("CANNED_MIN_DELAY", "2s")
		t.Setenv("CANNED_MAX_DELAY", "1s")
		_, err := load(nil, t.TempDir())
		assert.Error(t, err)
	})
}

func TestLoad_SessionSecret(t *testing.T) {
	t.Run("from secrets dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, sessionSecretName), []byte("from-file\n"), 0o600))
		cfg, err := load(nil, dir)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.SessionSecret)
	})
	t.Run("ephemeral in development", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		cfg, err := load(zap.New(core), t.TempDir())
		require.NoError(t, err)
		assert.Len(t, cfg.SessionSecret, 64)
		assert.Equal(t, 1, logs.FilterMessage("Session secret not configured, generated an ephemeral one").Len())
		assert.Equal(t, 1, logs.FilterMessage("Configuration loaded").Len())
	})
	t.Run("required in production", func(t *testing.T) {
		t.Setenv("ENV", "production")
		_, err := load(nil, t.TempDir())
		assert.ErrorIs(t, err, errSecretMissing)
	})
}
