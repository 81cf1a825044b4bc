package interfaces

import (
	"context"
	"iter"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates the service uses a local model server
	LLMModeOffline LLMMode = "offline"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService is the text-generation capability used by the chat orchestrator.
type LLMService interface {
	// Chat generates a complete response for the message sequence.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - messages: Conversation in chronological order, system messages first
	//
	// Returns:
	//   - string: Generated assistant response
	//   - error: Error if generation fails
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream generates the response incrementally. The sequence yields text
	// fragments in order; a non-nil error is yielded at most once and ends the
	// sequence. Stopping iteration early releases the underlying request.
	ChatStream(ctx context.Context, messages []Message) iter.Seq2[string, error]

	// HealthCheck verifies the backend is reachable and the model is usable.
	HealthCheck(ctx context.Context) error

	// GetMode returns whether the backend is a cloud API or a local server.
	GetMode() LLMMode

	// Name identifies the provider and model, e.g. "ollama/llama3.2:latest".
	Name() string

	// Close releases resources held by the client.
	Close() error
}
