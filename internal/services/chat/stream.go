package chat

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// ErrStreamConsumed is reported when a stream is iterated more than once
var ErrStreamConsumed = errors.New("stream already consumed")

// AskStream returns a lazy, single-use event sequence for one exchange.
// Nothing runs until the sequence is iterated.
func (s *ChatService) AskStream(ctx context.Context, req *models.AskRequest) iter.Seq[models.StreamEvent] {
	var used atomic.Bool
	return func(yield func(models.StreamEvent) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(errorEvent(ErrStreamConsumed))
			return
		}
		s.stream(ctx, req, yield)
	}
}

func (s *ChatService) stream(ctx context.Context, req *models.AskRequest, yield func(models.StreamEvent) bool) {
	ex, err := s.prepare(req)
	if err != nil {
		yield(errorEvent(err))
		return
	}

	unlock := s.locks.Lock(ex.conversationID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		yield(errorEvent(err))
		return
	}

	if cached := s.begin(ctx, ex); cached != nil {
		if len(cached.Sources) > 0 && !yield(sourcesEvent(cached.Sources)) {
			return
		}
		if !emitWords(ctx, cached.Answer, yield) {
			return
		}
		yield(doneEvent(cached.ConversationID, cached.Sources))
		return
	}

	grounded := s.tryGrounded(ctx, ex)
	if grounded.accepted {
		if !yield(sourcesEvent(grounded.sources)) {
			return
		}
		if !emitWords(ctx, grounded.answer, yield) {
			return
		}
		result := s.deliver(ctx, ex, grounded.answer, grounded.sources)
		yield(doneEvent(result.ConversationID, result.Sources))
		return
	}

	var answer strings.Builder
	messages := buildMessages(fallbackSystemPrompt(), ex.window, ex.question)
	for fragment, err := range s.llmService.ChatStream(ctx, messages) {
		if err != nil {
			ex.logger.Error().Err(err).Int("partial_chars", answer.Len()).Msg("Fallback stream failed")
			yield(errorEvent(&interfaces.GenerationError{
				Stage:         interfaces.StageFallback,
				Cause:         err,
				GroundedCause: grounded.groundedErr,
			}))
			return
		}
		if fragment == "" {
			continue
		}
		answer.WriteString(fragment)
		if !yield(tokenEvent(fragment)) {
			ex.logger.Debug().Msg("Stream consumer stopped early")
			return
		}
	}

	result := s.deliver(ctx, ex, answer.String(), []models.Citation{})
	yield(doneEvent(result.ConversationID, result.Sources))
}

// emitWords re-chunks a complete answer into word fragments.
// It returns false when the consumer stopped or ctx was cancelled.
func emitWords(ctx context.Context, text string, yield func(models.StreamEvent) bool) bool {
	for _, word := range splitWords(text) {
		if err := ctx.Err(); err != nil {
			yield(errorEvent(err))
			return false
		}
		if !yield(tokenEvent(word)) {
			return false
		}
	}
	return true
}

// splitWords cuts text before each word that follows whitespace.
// Concatenating the fragments reproduces text exactly.
func splitWords(text string) []string {
	var fragments []string
	start := 0
	prevSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i > start && prevSpace && !space {
			fragments = append(fragments, text[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(text) {
		fragments = append(fragments, text[start:])
	}
	return fragments
}

func sourcesEvent(sources []models.Citation) models.StreamEvent {
	return models.StreamEvent{Type: models.StreamEventSources, Sources: sources}
}

func tokenEvent(token string) models.StreamEvent {
	return models.StreamEvent{Type: models.StreamEventToken, Token: token}
}

func doneEvent(conversationID string, sources []models.Citation) models.StreamEvent {
	return models.StreamEvent{Type: models.StreamEventDone, ConversationID: conversationID, Sources: sources}
}

func errorEvent(err error) models.StreamEvent {
	return models.StreamEvent{Type: models.StreamEventError, Err: err}
}
