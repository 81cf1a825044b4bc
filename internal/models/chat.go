package models

import (
	"encoding/json"
)

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// AskRequest is the input to both the synchronous and the streaming ask operations
type AskRequest struct {
	Question       string `json:"question" validate:"required,max=4000"`
	ConversationID string `json:"conversation_id" validate:"max=128"`
	MaxSources     int    `json:"max_sources" validate:"gte=0,lte=20"`
	Render         string `json:"render,omitempty" validate:"omitempty,oneof=markdown html"`
}

// RankedResult pairs a document with its computed relevance score
type RankedResult struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// Citation references a document an answer was grounded on
type Citation struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// AnswerResult is the unit returned by Ask and rebuilt incrementally by AskStream
type AnswerResult struct {
	Answer         string     `json:"answer"`
	Sources        []Citation `json:"sources"`
	Query          string     `json:"query"`
	ConversationID string     `json:"conversation_id"`
}

// ConversationTurn is one message in a conversation session
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEventType tags a StreamEvent variant
type StreamEventType string

const (
	StreamEventSources StreamEventType = "sources"
	StreamEventToken   StreamEventType = "token"
	StreamEventDone    StreamEventType = "done"
	StreamEventError   StreamEventType = "error"
)

// StreamEvent is one element of a streamed answer.
// Only the field matching Type is meaningful.
type StreamEvent struct {
	Type           StreamEventType
	Sources        []Citation // sources, done
	Token          string     // token
	ConversationID string     // done
	Err            error      // error
}

// StreamDone carries the payload of a done event
type StreamDone struct {
	ConversationID string     `json:"conversation_id"`
	Sources        []Citation `json:"sources"`
}

// MarshalJSON encodes the event as {"type": ..., "data": ...}
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch e.Type {
	case StreamEventSources:
		data = nonNilCitations(e.Sources)
	case StreamEventToken:
		data = e.Token
	case StreamEventDone:
		data = StreamDone{ConversationID: e.ConversationID, Sources: nonNilCitations(e.Sources)}
	case StreamEventError:
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		data = msg
	}

	return json.Marshal(struct {
		Type StreamEventType `json:"type"`
		Data interface{}     `json:"data"`
	}{Type: e.Type, Data: data})
}

func nonNilCitations(c []Citation) []Citation {
	if c == nil {
		return []Citation{}
	}
	return c
}
