package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix.
// Version 7 UUIDs sort by creation time, so store key order follows insertion order.
func NewDocumentID() string {
	return "doc_" + uuid.Must(uuid.NewV7()).String()
}

// NewConversationID generates an identifier for a conversation the client did not name
func NewConversationID() string {
	return "conv_" + uuid.New().String()
}

// NewRequestID generates a correlation id for one HTTP request
func NewRequestID() string {
	return uuid.New().String()[:8]
}
