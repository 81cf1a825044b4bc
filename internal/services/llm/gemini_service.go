package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiService implements LLMService using the Google Gemini API
type GeminiService struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	retry       *RetryConfig
	logger      arbor.ILogger
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content format.
// System messages are returned separately for use as SystemInstruction.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var system []string
	hasUserMessage := false
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			hasUserMessage = true
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	return contents, strings.Join(system, "\n\n"), nil
}

// NewGeminiService creates a Gemini generation service.
//
// The API key is resolved from the environment, then the KV store, then config.
func NewGeminiService(ctx context.Context, config *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, timeout time.Duration, logger arbor.ILogger) (*GeminiService, error) {
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY, 'rocbot keys set gemini_api_key', or gemini.api_key in config): %w", err)
	}

	interval, err := common.ParseDuration(config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini.rate_limit: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = geminiDefaultModel
	}

	logger.Info().
		Str("model", model).
		Dur("rate_limit", interval).
		Dur("timeout", timeout).
		Msg("Gemini generation service initialized")

	return &GeminiService{
		client:      client,
		model:       model,
		temperature: config.Temperature,
		timeout:     timeout,
		limiter:     newLimiter(interval),
		retry:       NewDefaultRetryConfig(),
		logger:      logger,
	}, nil
}

func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	contents, config, err := s.prepare(messages)
	if err != nil {
		return "", err
	}

	var apiErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
		if err == nil {
			text := resp.Text()
			if text == "" {
				return "", fmt.Errorf("empty text in Gemini response")
			}
			return text, nil
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
			Msg("Retrying Gemini API call")
		if err := sleepContext(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("Gemini API call failed after %d retries: %w", s.retry.MaxRetries, apiErr)
}

func (s *GeminiService) ChatStream(ctx context.Context, messages []interfaces.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := withOptionalTimeout(ctx, s.timeout)
		defer cancel()

		contents, config, err := s.prepare(messages)
		if err != nil {
			yield("", err)
			return
		}
		if err := s.limiter.Wait(ctx); err != nil {
			yield("", err)
			return
		}

		for resp, err := range s.client.Models.GenerateContentStream(ctx, s.model, contents, config) {
			if err != nil {
				yield("", fmt.Errorf("Gemini stream failed: %w", err))
				return
			}
			if text := resp.Text(); text != "" && !yield(text, nil) {
				return
			}
		}
	}
}

// HealthCheck fetches the configured model's metadata
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model, nil); err != nil {
		return fmt.Errorf("Gemini model %s unavailable: %w", s.model, err)
	}
	return nil
}

func (s *GeminiService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

func (s *GeminiService) Name() string {
	return "gemini/" + s.model
}

func (s *GeminiService) Close() error {
	return nil
}

func (s *GeminiService) prepare(messages []interfaces.Message) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if s.temperature > 0 {
		config.Temperature = genai.Ptr(s.temperature)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	return contents, config, nil
}

// withOptionalTimeout applies timeout when positive
func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

var _ interfaces.LLMService = (*GeminiService)(nil)
