package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	ollamaDefaultModel   = "llama3.2:latest"
	ollamaMaxRetries     = 2
	ollamaMaxLineBytes   = 1 << 20
)

// OllamaService implements LLMService against a local Ollama server's /api/chat endpoint
type OllamaService struct {
	baseURL     string
	model       string
	temperature float32
	timeout     time.Duration
	client      *http.Client
	logger      arbor.ILogger
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message    ollamaMessage `json:"message"`
	Done       bool          `json:"done"`
	DoneReason string        `json:"done_reason"`
	Error      string        `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// NewOllamaService creates an Ollama-backed generation service
func NewOllamaService(config *common.OllamaConfig, timeout time.Duration, logger arbor.ILogger) *OllamaService {
	return NewOllamaServiceWithClient(config, timeout, &http.Client{}, logger)
}

// NewOllamaServiceWithClient is NewOllamaService with a caller-supplied HTTP client
func NewOllamaServiceWithClient(config *common.OllamaConfig, timeout time.Duration, client *http.Client, logger arbor.ILogger) *OllamaService {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = ollamaDefaultModel
	}
	if client == nil {
		client = &http.Client{}
	}

	logger.Info().
		Str("base_url", baseURL).
		Str("model", model).
		Dur("timeout", timeout).
		Msg("Ollama generation service initialized")

	return &OllamaService{
		baseURL:     baseURL,
		model:       model,
		temperature: config.Temperature,
		timeout:     timeout,
		client:      client,
		logger:      logger,
	}
}

// Chat posts a non-streaming /api/chat request, retrying connection failures and 5xx responses
func (s *OllamaService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, s.timeout)
	defer cancel()

	body, err := s.requestBody(messages, false)
	if err != nil {
		return "", err
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= ollamaMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			s.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(lastErr).Msg("Retrying Ollama request")
			if err := sleepContext(ctx, backoff); err != nil {
				return "", err
			}
		}

		resp, err := s.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = statusError(resp)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", statusError(resp)
		}

		var chat ollamaChatResponse
		err = json.NewDecoder(resp.Body).Decode(&chat)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to decode Ollama response: %w", err)
		}
		if chat.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chat.Error)
		}

		s.logger.Debug().
			Str("model", s.model).
			Int("response_chars", len(chat.Message.Content)).
			Dur("duration", time.Since(start)).
			Msg("Ollama chat completed")
		return chat.Message.Content, nil
	}

	return "", fmt.Errorf("ollama request failed after %d retries: %w", ollamaMaxRetries, lastErr)
}

// ChatStream posts a streaming /api/chat request and yields message fragments from the NDJSON body
func (s *OllamaService) ChatStream(ctx context.Context, messages []interfaces.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := withOptionalTimeout(ctx, s.timeout)
		defer cancel()

		body, err := s.requestBody(messages, true)
		if err != nil {
			yield("", err)
			return
		}

		resp, err := s.post(ctx, body)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield("", statusError(resp))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), ollamaMaxLineBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				yield("", fmt.Errorf("failed to decode Ollama stream chunk: %w", err))
				return
			}
			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama error: %s", chunk.Error))
				return
			}
			if chunk.Message.Content != "" && !yield(chunk.Message.Content, nil) {
				return
			}
			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("ollama stream interrupted: %w", err))
			return
		}
		yield("", errors.New("ollama stream ended before completion"))
	}
}

// HealthCheck verifies the server is reachable and the configured model is installed
func (s *OllamaService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode Ollama model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == s.model || m.Model == s.model {
			return nil
		}
	}
	return fmt.Errorf("ollama model %s is not installed (run: ollama pull %s)", s.model, s.model)
}

func (s *OllamaService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeOffline
}

func (s *OllamaService) Name() string {
	return "ollama/" + s.model
}

func (s *OllamaService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *OllamaService) requestBody(messages []interfaces.Message, stream bool) ([]byte, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	req := ollamaChatRequest{
		Model:    s.model,
		Messages: make([]ollamaMessage, 0, len(messages)),
		Stream:   stream,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	if s.temperature > 0 {
		req.Options = map[string]any{"temperature": s.temperature}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Ollama request: %w", err)
	}
	return body, nil
}

func (s *OllamaService) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	return resp, nil
}

// statusError drains and closes resp, returning its status and body as an error
func statusError(resp *http.Response) error {
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var chat ollamaChatResponse
	if json.Unmarshal(respBody, &chat) == nil && chat.Error != "" {
		return fmt.Errorf("ollama returned %d: %s", resp.StatusCode, chat.Error)
	}
	return fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

var _ interfaces.LLMService = (*OllamaService)(nil)
