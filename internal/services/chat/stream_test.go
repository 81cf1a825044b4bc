package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

func TestAskStream_AcceptedMatchesAsk(t *testing.T) {
	llm := &fakeLLM{groundedAnswer: "The mayor  chairs the\ncouncil meeting."}
	h := newHarness(t, llm, false)
	h.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(rankedDocs(), nil)
	ctx := context.Background()

	asked, err := h.service.Ask(ctx, &models.AskRequest{Question: "Who is the mayor?", ConversationID: "a1"})
	require.NoError(t, err)

	events := collect(h.service.AskStream(ctx, &models.AskRequest{Question: "Who is the mayor?", ConversationID: "s1"}))
	require.GreaterOrEqual(t, len(events), 3)

	assert.Equal(t, models.StreamEventSources, events[0].Type)
	assert.Equal(t, asked.Sources, events[0].Sources)

	last := events[len(events)-1]
	assert.Equal(t, models.StreamEventDone, last.Type)
	assert.Equal(t, "s1", last.ConversationID)
	assert.Equal(t, asked.Sources, last.Sources)

	for _, ev := range events[1 : len(events)-1] {
		assert.Equal(t, models.StreamEventToken, ev.Type)
	}
	assert.Greater(t, len(events)-2, 1, "accepted answers are re-chunked")
	assert.Equal(t, asked.Answer, joinTokens(events))
	assert.Equal(t, 2, h.conversations.Len("s1"))
}

func TestAskStream_FallbackRelaysFragments(t *testing.T) {
	llm := &fakeLLM{fragments: []string{FallbackDisclaimer, " Zebras ", "are striped."}}
	h := newHarness(t, llm, true)
	h.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return([]models.RankedResult{}, nil)

	events := collect(h.service.AskStream(context.Background(), &models.AskRequest{Question: "What is a zebra?", ConversationID: "c1"}))
	require.Len(t, events, 4)

	assert.Equal(t, models.StreamEventToken, events[0].Type, "no sources event on fallback")
	assert.Equal(t, FallbackDisclaimer, events[0].Token)
	assert.Equal(t, models.StreamEventDone, events[3].Type)
	assert.Empty(t, events[3].Sources)

	history := h.conversations.History("c1")
	require.Len(t, history, 2)
	assert.Equal(t, FallbackDisclaimer+" Zebras are striped.", history[1].Content)
	assert.Equal(t, 1, h.cache.Len(context.Background()))
}

func TestAskStream_CachedAnswerIsReplayed(t *testing.T) {
	llm := &fakeLLM{groundedAnswer: "Weekly on Tuesdays."}
	h := newHarness(t, llm, true)
	h.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(rankedDocs(), nil)
	ctx := context.Background()

	asked, err := h.service.Ask(ctx, &models.AskRequest{Question: "When is trash pickup?", ConversationID: "c1"})
	require.NoError(t, err)

	events := collect(h.service.AskStream(ctx, &models.AskRequest{Question: "when is trash pickup?", ConversationID: "c2"}))
	assert.Equal(t, models.StreamEventSources, events[0].Type)
	assert.Equal(t, asked.Answer, joinTokens(events))
	last := events[len(events)-1]
	assert.Equal(t, models.StreamEventDone, last.Type)
	assert.Equal(t, "c2", last.ConversationID, "a cached answer is delivered to the asking conversation")
	assert.Equal(t, 1, llm.calls())
}

func TestAskStream_FailureEmitsSingleErrorEvent(t *testing.T) {
	cause := errors.New("stream reset")
	llm := &fakeLLM{groundedErr: errors.New("timeout"), fragments: []string{"partial "}, streamErr: cause}
	h := newHarness(t, llm, true)
	h.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(rankedDocs(), nil)

	events := collect(h.service.AskStream(context.Background(), &models.AskRequest{Question: "Who is the mayor?", ConversationID: "c1"}))
	require.Len(t, events, 2)
	assert.Equal(t, models.StreamEventToken, events[0].Type)
	assert.Equal(t, models.StreamEventError, events[1].Type)

	var genErr *interfaces.GenerationError
	require.ErrorAs(t, events[1].Err, &genErr)
	assert.ErrorIs(t, events[1].Err, cause)
	assert.NotNil(t, genErr.GroundedCause)

	assert.Zero(t, h.conversations.Len("c1"))
	assert.Zero(t, h.cache.Len(context.Background()))
}

func TestAskStream_SecondIterationErrors(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"hello"}}
	h := newHarness(t, llm, false)
	h.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return([]models.RankedResult{}, nil)

	stream := h.service.AskStream(context.Background(), &models.AskRequest{Question: "greetings", ConversationID: "c1"})
	first := collect(stream)
	require.Len(t, first, 2)

	second := collect(stream)
	require.Len(t, second, 1)
	assert.Equal(t, models.StreamEventError, second[0].Type)
	assert.ErrorIs(t, second[0].Err, ErrStreamConsumed)
}

func TestAskStream_IsLazy(t *testing.T) {
	llm := &fakeLLM{}
	h := newHarness(t, llm, false)

	_ = h.service.AskStream(context.Background(), &models.AskRequest{Question: "hello", ConversationID: "c1"})
	assert.Zero(t, llm.calls())
	h.ranker.AssertNotCalled(t, "Rank", mock.Anything, mock.Anything, mock.Anything)
}

func TestAskStream_ConsumerBreakStopsProduction(t *testing.T) {
	llm := &fakeLLM{groundedAnswer: "one two three four"}
	h := newHarness(t, llm, false)
	h.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(rankedDocs(), nil)

	seen := 0
	for ev := range h.service.AskStream(context.Background(), &models.AskRequest{Question: "Who is the mayor?", ConversationID: "c1"}) {
		seen++
		if ev.Type == models.StreamEventToken {
			break
		}
	}
	assert.Equal(t, 2, seen)
	assert.Zero(t, h.conversations.Len("c1"), "undelivered answers are not recorded")
	assert.Zero(t, h.service.locks.size(), "lock released when the consumer stops")
}

func TestAskStream_CancelledContext(t *testing.T) {
	h := newHarness(t, &fakeLLM{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := collect(h.service.AskStream(ctx, &models.AskRequest{Question: "hello", ConversationID: "c1"}))
	require.Len(t, events, 1)
	assert.Equal(t, models.StreamEventError, events[0].Type)
	assert.ErrorIs(t, events[0].Err, context.Canceled)
}

func TestAskStream_InvalidRequest(t *testing.T) {
	h := newHarness(t, &fakeLLM{}, false)

	events := collect(h.service.AskStream(context.Background(), &models.AskRequest{Question: " "}))
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, interfaces.ErrInvalidRequest)
}

func TestSplitWords(t *testing.T) {
	for _, text := range []string{"", "one", "one two", "  leading", "trailing  ", "multi\n\nline text\there", "héllo wörld ✓ done"} {
		fragments := splitWords(text)
		joined := ""
		for _, f := range fragments {
			joined += f
		}
		assert.Equal(t, text, joined)
	}
	assert.Equal(t, []string{"one ", "two  ", "three"}, splitWords("one two  three"))
}
