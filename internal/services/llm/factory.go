package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

// NewLLMService creates the generation backend from configuration.
// The default provider must initialise; fallback providers that cannot
// (typically a missing API key) are skipped with a warning. With more than
// one usable provider the result is a FailoverService.
func NewLLMService(ctx context.Context, cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.LLMService, error) {
	timeout, err := common.ParseDuration(cfg.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm.timeout: %w", err)
	}

	logger.Info().
		Str("default_provider", string(cfg.LLM.DefaultProvider)).
		Int("fallback_providers", len(cfg.LLM.FallbackProviders)).
		Msg("Initializing generation service")

	primary, err := newProvider(ctx, cfg.LLM.DefaultProvider, cfg, kvStorage, timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.LLM.DefaultProvider, err)
	}

	services := []interfaces.LLMService{primary}
	seen := map[common.LLMProvider]bool{cfg.LLM.DefaultProvider: true}
	for _, provider := range cfg.LLM.FallbackProviders {
		if seen[provider] {
			continue
		}
		seen[provider] = true

		service, err := newProvider(ctx, provider, cfg, kvStorage, timeout, logger)
		if err != nil {
			logger.Warn().Str("provider", string(provider)).Err(err).Msg("Skipping fallback provider")
			continue
		}
		services = append(services, service)
	}

	if len(services) == 1 {
		return primary, nil
	}
	return NewFailoverService(services, logger), nil
}

func newProvider(ctx context.Context, provider common.LLMProvider, cfg *common.Config, kvStorage interfaces.KeyValueStorage, timeout time.Duration, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch provider {
	case common.LLMProviderOllama, "":
		return NewOllamaService(&cfg.Ollama, timeout, logger), nil
	case common.LLMProviderGemini:
		return NewGeminiService(ctx, &cfg.Gemini, kvStorage, timeout, logger)
	case common.LLMProviderClaude:
		return NewClaudeService(ctx, &cfg.Claude, kvStorage, timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
