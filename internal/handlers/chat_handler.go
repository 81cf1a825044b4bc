package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// ChatHandler exposes the chat service over HTTP
type ChatHandler struct {
	chatService interfaces.ChatService
	markdown    goldmark.Markdown
	logger      arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		markdown:    goldmark.New(),
		logger:      logger,
	}
}

// chatRequest is the request body shared by the JSON, SSE and WebSocket endpoints.
// "message" is accepted as an alias of "question".
type chatRequest struct {
	Question       string `json:"question"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	MaxSources     int    `json:"max_sources"`
	Render         string `json:"render"`
}

func (c chatRequest) toAskRequest() *models.AskRequest {
	question := c.Question
	if strings.TrimSpace(question) == "" {
		question = c.Message
	}
	return &models.AskRequest{
		Question:       question,
		ConversationID: c.ConversationID,
		MaxSources:     c.MaxSources,
		Render:         c.Render,
	}
}

// chatResponse is an AnswerResult with the optional rendered answer
type chatResponse struct {
	*models.AnswerResult
	AnswerHTML string `json:"answer_html,omitempty"`
}

// ChatHandler handles POST /api/chat
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.chatService.Ask(r.Context(), req)
	if err != nil {
		h.writeAskError(w, err)
		return
	}

	resp := chatResponse{AnswerResult: result}
	if req.Render == "html" {
		html, err := h.renderHTML(result.Answer)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to render answer as HTML")
		} else {
			resp.AnswerHTML = html
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// StreamHandler handles POST /api/chat/stream as server-sent events.
// Each event is written as one "data: {json}" frame.
func (h *ChatHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := 0
	for event := range h.chatService.AskStream(r.Context(), req) {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to encode stream event")
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			h.logger.Debug().Err(err).Msg("Stream client went away")
			return
		}
		flusher.Flush()
		events++
	}

	h.logger.Debug().Int("events", events).Msg("Chat stream completed")
}

// ClearConversationHandler handles DELETE /api/conversation/{id}
func (h *ChatHandler) ClearConversationHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		id = strings.TrimPrefix(r.URL.Path, "/api/conversation/")
	}
	if strings.TrimSpace(id) == "" {
		WriteError(w, http.StatusBadRequest, "Conversation id is required")
		return
	}

	if err := h.chatService.ClearConversation(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("conversation_id", id).Msg("Failed to clear conversation")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Conversation %s cleared", id),
	})
}

func (h *ChatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*models.AskRequest, bool) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode chat request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return body.toAskRequest(), true
}

func (h *ChatHandler) writeAskError(w http.ResponseWriter, err error) {
	var genErr *interfaces.GenerationError
	switch {
	case errors.Is(err, interfaces.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &genErr):
		h.logger.Error().Err(err).Str("stage", genErr.Stage).Msg("Answer generation failed")
		WriteError(w, http.StatusBadGateway, "Failed to generate response: "+err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Chat request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *ChatHandler) renderHTML(answer string) (string, error) {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(answer), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
