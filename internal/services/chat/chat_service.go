// Package chat orchestrates retrieval, grounded generation, fallback and delivery.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
	"github.com/madhura1396/rocbot/internal/services/cache"
)

// DefaultMaxSources is the ranking limit when a request does not set one
const DefaultMaxSources = 5

// Config tunes retrieval for the chat service
type Config struct {
	MaxSources   int
	ContextChars int
}

// ChatService answers questions from ranked documents, falling back to
// general knowledge when the store has nothing useful.
type ChatService struct {
	ranker        interfaces.Ranker
	llmService    interfaces.LLMService
	storage       interfaces.DocumentStorage
	conversations interfaces.ConversationStore
	cache         interfaces.ResponseCache
	classifier    interfaces.SufficiencyClassifier
	validate      *validator.Validate
	locks         *keyedMutex
	logger        arbor.ILogger
	maxSources    int
	contextChars  int
}

// NewChatService creates a chat service. responseCache may be nil to disable caching.
func NewChatService(
	ranker interfaces.Ranker,
	llmService interfaces.LLMService,
	storage interfaces.DocumentStorage,
	conversations interfaces.ConversationStore,
	responseCache interfaces.ResponseCache,
	classifier interfaces.SufficiencyClassifier,
	config Config,
	logger arbor.ILogger,
) *ChatService {
	if config.MaxSources <= 0 {
		config.MaxSources = DefaultMaxSources
	}
	if config.ContextChars <= 0 {
		config.ContextChars = DefaultContextChars
	}
	if classifier == nil {
		classifier = NewPhraseClassifier()
	}

	return &ChatService{
		ranker:        ranker,
		llmService:    llmService,
		storage:       storage,
		conversations: conversations,
		cache:         responseCache,
		classifier:    classifier,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		locks:         newKeyedMutex(),
		logger:        logger,
		maxSources:    config.MaxSources,
		contextChars:  config.ContextChars,
	}
}

// exchange is one validated question moving through the pipeline
type exchange struct {
	question       string
	conversationID string
	maxSources     int
	firstTurn      bool
	fingerprint    string
	window         []models.ConversationTurn
	logger         arbor.ILogger
}

// outcome is the result of the grounded attempt
type outcome struct {
	answer      string
	sources     []models.Citation
	accepted    bool
	groundedErr error
}

// Ask runs one exchange to completion
func (s *ChatService) Ask(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error) {
	ex, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ex.conversationID)
	defer unlock()

	if cached := s.begin(ctx, ex); cached != nil {
		return cached, nil
	}

	grounded := s.tryGrounded(ctx, ex)
	if grounded.accepted {
		return s.deliver(ctx, ex, grounded.answer, grounded.sources), nil
	}

	answer, err := s.llmService.Chat(ctx, buildMessages(fallbackSystemPrompt(), ex.window, ex.question))
	if err != nil {
		ex.logger.Error().Err(err).Msg("Fallback generation failed")
		return nil, &interfaces.GenerationError{
			Stage:         interfaces.StageFallback,
			Cause:         err,
			GroundedCause: grounded.groundedErr,
		}
	}

	return s.deliver(ctx, ex, answer, []models.Citation{}), nil
}

// ClearConversation forgets the history of conversationID
func (s *ChatService) ClearConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	s.conversations.Clear(conversationID)
	s.logger.Info().Str("conversation_id", conversationID).Msg("Cleared conversation")
	return nil
}

func (s *ChatService) Stats(ctx context.Context) (*models.DocumentStats, error) {
	stats, err := s.storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return stats, nil
}

func (s *ChatService) HealthCheck(ctx context.Context) error {
	return s.llmService.HealthCheck(ctx)
}

// prepare validates the request and fills defaults
func (s *ChatService) prepare(req *models.AskRequest) (*exchange, error) {
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", interfaces.ErrInvalidRequest)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidRequest, err)
	}

	ex := &exchange{
		question:       req.Question,
		conversationID: req.ConversationID,
		maxSources:     req.MaxSources,
		fingerprint:    cache.Fingerprint(req.Question),
	}
	if ex.conversationID == "" {
		ex.conversationID = common.NewConversationID()
	}
	if ex.maxSources <= 0 {
		ex.maxSources = s.maxSources
	}
	ex.logger = s.logger.WithCorrelationId(ex.conversationID)
	return ex, nil
}

// begin snapshots the session and returns a cached answer for first-turn questions.
// Must be called with the conversation lock held.
func (s *ChatService) begin(ctx context.Context, ex *exchange) *models.AnswerResult {
	ex.firstTurn = s.conversations.Len(ex.conversationID) == 0
	ex.window = s.conversations.Window(ex.conversationID)

	if !ex.firstTurn || s.cache == nil {
		return nil
	}
	cached, ok := s.cache.Get(ctx, ex.fingerprint)
	if !ok {
		return nil
	}
	ex.logger.Info().
		Str("question", ex.question).
		Str("cached_conversation_id", cached.ConversationID).
		Msg("Cache hit")
	// Caches return copies; the answer belongs to this conversation.
	cached.ConversationID = ex.conversationID
	return cached
}

// tryGrounded ranks documents and generates a candidate from their context
func (s *ChatService) tryGrounded(ctx context.Context, ex *exchange) outcome {
	results, err := s.ranker.Rank(ctx, ex.question, ex.maxSources)
	if err != nil {
		ex.logger.Warn().Err(err).Msg("Ranking failed, answering without context")
		return outcome{}
	}
	if len(results) == 0 {
		ex.logger.Info().Str("question", ex.question).Msg("No relevant documents, using fallback")
		return outcome{}
	}

	ex.logger.Info().Int("sources", len(results)).Str("ranker", s.ranker.Mode()).Msg("Found relevant documents")

	contextText := AssembleContext(results, s.contextChars)
	candidate, err := s.llmService.Chat(ctx, buildMessages(groundedSystemPrompt(contextText), ex.window, ex.question))
	if err != nil {
		ex.logger.Warn().Err(err).Msg("Grounded generation failed, trying fallback")
		return outcome{groundedErr: &interfaces.GenerationError{Stage: interfaces.StageGrounded, Cause: err}}
	}

	if s.classifier.IsInsufficient(candidate) {
		ex.logger.Info().Msg("Grounded answer was insufficient, using fallback")
		return outcome{}
	}

	return outcome{answer: candidate, sources: BuildCitations(results), accepted: true}
}

// deliver records the exchange and caches first-turn answers
func (s *ChatService) deliver(ctx context.Context, ex *exchange, answer string, sources []models.Citation) *models.AnswerResult {
	result := &models.AnswerResult{
		Answer:         answer,
		Sources:        sources,
		Query:          ex.question,
		ConversationID: ex.conversationID,
	}

	s.conversations.Append(ex.conversationID,
		models.ConversationTurn{Role: models.RoleUser, Content: ex.question},
		models.ConversationTurn{Role: models.RoleAssistant, Content: answer},
	)

	if ex.firstTurn && s.cache != nil {
		if err := s.cache.Put(ctx, ex.fingerprint, result); err != nil {
			ex.logger.Warn().Err(err).Msg("Failed to cache answer")
		} else {
			ex.logger.Debug().Str("question", ex.question).Msg("Cached answer")
		}
	}

	ex.logger.Info().
		Int("sources", len(sources)).
		Int("answer_chars", len(answer)).
		Msg("Answer delivered")

	return result
}

var _ interfaces.ChatService = (*ChatService)(nil)
