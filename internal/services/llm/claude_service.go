package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

const (
	claudeDefaultModel     = anthropic.ModelClaude3_5HaikuLatest
	claudeDefaultMaxTokens = 1024
)

// ClaudeService implements LLMService using the Anthropic Messages API
type ClaudeService struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	retry       *RetryConfig
	logger      arbor.ILogger
}

// convertMessagesToClaude converts []interfaces.Message to Claude MessageParam format.
// System messages are returned separately for the System parameter.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var system []string
	hasUserMessage := false
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			hasUserMessage = true
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	return claudeMessages, strings.Join(system, "\n\n"), nil
}

// NewClaudeService creates a Claude generation service.
// The API key is resolved from the environment, then the KV store, then config.
func NewClaudeService(ctx context.Context, config *common.ClaudeConfig, kvStorage interfaces.KeyValueStorage, timeout time.Duration, logger arbor.ILogger) (*ClaudeService, error) {
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "claude_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY, 'rocbot keys set claude_api_key', or claude.api_key in config): %w", err)
	}

	interval, err := common.ParseDuration(config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid claude.rate_limit: %w", err)
	}

	model := config.Model
	if model == "" {
		model = string(claudeDefaultModel)
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	logger.Info().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Dur("rate_limit", interval).
		Msg("Claude generation service initialized")

	return &ClaudeService{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: config.Temperature,
		timeout:     timeout,
		limiter:     newLimiter(interval),
		retry:       NewDefaultRetryConfig(),
		logger:      logger,
	}, nil
}

func (s *ClaudeService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	params, err := s.params(messages)
	if err != nil {
		return "", err
	}

	var apiErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := s.client.Messages.New(ctx, params)
		if err == nil {
			var text strings.Builder
			for _, block := range resp.Content {
				if block.Type == "text" {
					text.WriteString(block.Text)
				}
			}
			if text.Len() == 0 {
				return "", fmt.Errorf("empty response from Claude API")
			}
			return text.String(), nil
		}
		apiErr = err

		if attempt == s.retry.MaxRetries {
			break
		}
		backoff := s.retry.backoffFor(attempt, err)
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying Claude API call")
		if err := sleepContext(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("Claude API call failed after %d retries: %w", s.retry.MaxRetries, apiErr)
}

func (s *ClaudeService) ChatStream(ctx context.Context, messages []interfaces.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := withOptionalTimeout(ctx, s.timeout)
		defer cancel()

		params, err := s.params(messages)
		if err != nil {
			yield("", err)
			return
		}
		if err := s.limiter.Wait(ctx); err != nil {
			yield("", err)
			return
		}

		stream := s.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			if !yield(text.Text, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("Claude stream failed: %w", err))
		}
	}
}

// HealthCheck fetches the configured model's metadata
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model, anthropic.ModelGetParams{}); err != nil {
		return fmt.Errorf("Claude model %s unavailable: %w", s.model, err)
	}
	return nil
}

func (s *ClaudeService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

func (s *ClaudeService) Name() string {
	return "claude/" + s.model
}

func (s *ClaudeService) Close() error {
	return nil
}

func (s *ClaudeService) params(messages []interfaces.Message) (anthropic.MessageNewParams, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}
	if s.temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}
	return params, nil
}

var _ interfaces.LLMService = (*ClaudeService)(nil)
