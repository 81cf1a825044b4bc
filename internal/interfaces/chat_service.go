package interfaces

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/madhura1396/rocbot/internal/models"
)

// ErrInvalidRequest is returned when an ask request fails validation
var ErrInvalidRequest = errors.New("invalid request")

// Generation stages reported by GenerationError
const (
	StageGrounded = "grounded"
	StageFallback = "fallback"
)

// GenerationError reports that no generation path produced an answer.
// When the grounded attempt failed before the fallback also failed,
// GroundedCause holds the first failure.
type GenerationError struct {
	Stage         string
	Cause         error
	GroundedCause error
}

func (e *GenerationError) Error() string {
	if e.GroundedCause != nil {
		return fmt.Sprintf("%s generation failed: %v (grounded generation failed: %v)", e.Stage, e.Cause, e.GroundedCause)
	}
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Cause)
}

func (e *GenerationError) Unwrap() []error {
	if e.GroundedCause != nil {
		return []error{e.Cause, e.GroundedCause}
	}
	return []error{e.Cause}
}

// SufficiencyClassifier decides whether a grounded answer admits it found nothing
type SufficiencyClassifier interface {
	IsInsufficient(answer string) bool
}

// ConversationStore keeps per-conversation turn history.
// Sessions are created on first reference and removed only by Clear or Prune.
type ConversationStore interface {
	// Window returns the most recent turns used for prompting
	Window(id string) []models.ConversationTurn

	// History returns every retained turn
	History(id string) []models.ConversationTurn

	// Len returns the number of turns held for id
	Len(id string) int

	// Append adds turns atomically for id
	Append(id string, turns ...models.ConversationTurn)

	// Clear removes the session. Clearing an unknown id is a no-op.
	Clear(id string)

	// Prune removes sessions idle for longer than idle and returns how many were removed
	Prune(idle time.Duration) int

	// Count returns the number of live sessions
	Count() int
}

// ChatService answers questions over the document store
type ChatService interface {
	// Ask returns a complete answer. A *GenerationError is returned when every
	// attempted generation path failed.
	Ask(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error)

	// AskStream returns a single-use event sequence: an optional sources event,
	// token events, then done; or a single error event in place of the rest.
	AskStream(ctx context.Context, req *models.AskRequest) iter.Seq[models.StreamEvent]

	// ClearConversation forgets a conversation. Unknown ids are not an error.
	ClearConversation(ctx context.Context, conversationID string) error

	// Stats returns document counts from the store
	Stats(ctx context.Context) (*models.DocumentStats, error)

	// HealthCheck reports generation backend health
	HealthCheck(ctx context.Context) error
}
