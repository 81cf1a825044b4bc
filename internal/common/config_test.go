package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhura1396/rocbot/internal/interfaces"
)

type stubKV map[string]string

func (s stubKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s[key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}
func (s stubKV) Set(ctx context.Context, key, value, description string) error {
	s[key] = value
	return nil
}
func (s stubKV) Delete(ctx context.Context, key string) error {
	delete(s, key)
	return nil
}
func (s stubKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	pairs := []interfaces.KeyValuePair{}
	for k, v := range s {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rocbot.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, LLMProviderOllama, cfg.LLM.DefaultProvider)
	assert.Equal(t, "llama3.2:latest", cfg.Ollama.Model)
	assert.Equal(t, 5, cfg.Search.MaxSources)
	assert.Equal(t, 2000, cfg.Search.ContextChars)
	assert.Equal(t, 10, cfg.Conversation.Window)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.HousekeepingEnabled(), "defaults keep sessions and cache for the process lifetime")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfig(t, `
[server]
port = 9000

[search]
mode = "tfidf"
max_sources = 3
`)
	override := writeConfig(t, `
[server]
port = 9100
`)

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "tfidf", cfg.Search.Mode)
	assert.Equal(t, 3, cfg.Search.MaxSources)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset keys keep defaults")
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[ollama]
model = "mistral"
`)
	t.Setenv("OLLAMA_MODEL", "llama3.1:8b")
	t.Setenv("ROCBOT_SERVER_PORT", "8123")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3.1:8b", cfg.Ollama.Model)
	assert.Equal(t, 8123, cfg.Server.Port)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := writeConfig(t, `[llm]
default_provider = "openai"
`)
	_, err = LoadFromFiles(bad)
	assert.ErrorContains(t, err, "default_provider")

	badTTL := writeConfig(t, `[cache]
ttl = "soon"
`)
	_, err = LoadFromFiles(badTTL)
	assert.ErrorContains(t, err, "cache.ttl")
}

func TestValidate_JanitorScheduleOnlyCheckedWhenExpiryConfigured(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Janitor.Schedule = "not a cron"
	assert.NoError(t, cfg.Validate())

	cfg.Conversation.IdleTTL = "30m"
	assert.ErrorContains(t, cfg.Validate(), "janitor.schedule")
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8000, cfg.Server.Port)

	ApplyFlagOverrides(cfg, 9999, "0.0.0.0")
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestResolveAPIKey_Priority(t *testing.T) {
	ctx := context.Background()
	kv := stubKV{"gemini_api_key": "from-kv"}

	t.Setenv("ROCBOT_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	key, err := ResolveAPIKey(ctx, kv, "gemini_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-kv", key)

	t.Setenv("GEMINI_API_KEY", "from-env")
	key, err = ResolveAPIKey(ctx, kv, "gemini_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	t.Setenv("ROCBOT_CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	key, err = ResolveAPIKey(ctx, nil, "claude_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	_, err = ResolveAPIKey(ctx, nil, "unknown_key", "")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseDuration("90s")
	require.NoError(t, err)
	assert.Equal(t, 90.0, d.Seconds())

	_, err = ParseDuration("-1m")
	assert.Error(t, err)
}
