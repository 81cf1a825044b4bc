package chat

import (
	"fmt"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// FallbackDisclaimer must open every answer not drawn from the document store
const FallbackDisclaimer = "⚠️ **Note:** I don't have this in my Rochester database, so I'm using general training data. Please verify from official sources."

// groundedSystemPrompt restricts the model to the supplied context
func groundedSystemPrompt(context string) string {
	return fmt.Sprintf(`You are RocBot, a helpful AI assistant for Rochester, NY. You help people find information about city services, events, meetups, and community resources.

Answer the user's question using only the context below, taken from official sources (City of Rochester website, Eventbrite, and Meetup).

CONTEXT:
%s
INSTRUCTIONS:
- Provide a clear, accurate answer based on the context above
- If this is a follow-up question, use the previous conversation for context
- Include specific details like dates, times, locations, or contact info when available
- If the context does not answer the question, say you couldn't find it
- Keep your answer concise but informative
- Use a friendly, helpful tone`, context)
}

// fallbackSystemPrompt allows general knowledge behind a mandatory disclaimer
func fallbackSystemPrompt() string {
	return fmt.Sprintf(`You are RocBot, an AI assistant for Rochester, NY.

The user asked a question that isn't in your local database. You may answer using your general knowledge, BUT:

1. Start with: "%s"

2. Provide a helpful answer

3. If unsure, say so and suggest where to find official info`, FallbackDisclaimer)
}

// buildMessages orders the system instruction, the history window and the question
func buildMessages(system string, window []models.ConversationTurn, question string) []interfaces.Message {
	messages := make([]interfaces.Message, 0, len(window)+2)
	messages = append(messages, interfaces.Message{Role: models.RoleSystem, Content: system})
	for _, turn := range window {
		messages = append(messages, interfaces.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, interfaces.Message{Role: models.RoleUser, Content: question})
	return messages
}
