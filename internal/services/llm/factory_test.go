package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
)

func TestNewLLMService_DefaultsToOllama(t *testing.T) {
	cfg := common.NewDefaultConfig()

	service, err := NewLLMService(context.Background(), cfg, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.IsType(t, &OllamaService{}, service)
}

func TestNewLLMService_SkipsFallbackWithoutKey(t *testing.T) {
	t.Setenv("ROCBOT_CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := common.NewDefaultConfig()
	cfg.LLM.FallbackProviders = []common.LLMProvider{common.LLMProviderClaude, common.LLMProviderOllama}

	service, err := NewLLMService(context.Background(), cfg, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.IsType(t, &OllamaService{}, service, "duplicate and unusable fallbacks are dropped")
}

func TestNewLLMService_FailoverChain(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg := common.NewDefaultConfig()
	cfg.LLM.FallbackProviders = []common.LLMProvider{common.LLMProviderClaude}

	service, err := NewLLMService(context.Background(), cfg, nil, arbor.NewLogger())
	require.NoError(t, err)
	require.IsType(t, &FailoverService{}, service)
	assert.Equal(t, "failover(ollama/llama3.2:latest,claude/claude-3-5-haiku-latest)", service.Name())
}

func TestNewLLMService_DefaultProviderMustInitialise(t *testing.T) {
	t.Setenv("ROCBOT_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = common.LLMProviderGemini

	_, err := NewLLMService(context.Background(), cfg, nil, arbor.NewLogger())
	assert.Error(t, err)
}
