package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

const previewChars = 300

func createAskTool() mcp.Tool {
	return mcp.NewTool("ask",
		mcp.WithDescription("Answer a question about Rochester, NY from the local knowledge base, with cited sources"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Reuse to continue a conversation; a new one is created when omitted"),
		),
		mcp.WithNumber("max_sources",
			mcp.Description("Documents to ground the answer on (default: 5, max: 20)"),
		),
	)
}

func createSearchDocumentsTool() mcp.Tool {
	return mcp.NewTool("search_documents",
		mcp.WithDescription("Rank stored documents by keyword relevance"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 10, max: 100)"),
		),
	)
}

func createListEventsTool() mcp.Tool {
	return mcp.NewTool("list_events",
		mcp.WithDescription("List stored documents in the events category"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

func createStatsTool() mcp.Tool {
	return mcp.NewTool("document_stats",
		mcp.WithDescription("Count stored documents by source and category"),
	)
}

// handleAsk implements the ask tool
func handleAsk(chatService interfaces.ChatService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question parameter is required"), nil
		}

		result, err := chatService.Ask(ctx, &models.AskRequest{
			Question:       question,
			ConversationID: request.GetString("conversation_id", ""),
			MaxSources:     request.GetInt("max_sources", 0),
		})
		if err != nil {
			logger.Error().Err(err).Msg("MCP ask failed")
			return mcp.NewToolResultError(fmt.Sprintf("Ask failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatAnswer(result)), nil
	}
}

// handleSearchDocuments implements the search_documents tool
func handleSearchDocuments(ranker interfaces.Ranker, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		limit := request.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		results, err := ranker.Rank(ctx, query, limit)
		if err != nil {
			logger.Error().Err(err).Msg("MCP search failed")
			return mcp.NewToolResultError(fmt.Sprintf("Search error: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

// handleListEvents implements the list_events tool
func handleListEvents(storage interfaces.DocumentStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}

		events, err := storage.FindByCategory(ctx, models.CategoryEvents, limit)
		if err != nil {
			logger.Error().Err(err).Msg("MCP list events failed")
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
		}

		return mcp.NewToolResultText(formatEvents(events)), nil
	}
}

// handleStats implements the document_stats tool
func handleStats(chatService interfaces.ChatService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := chatService.Stats(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("MCP stats failed")
			return mcp.NewToolResultError(fmt.Sprintf("Failed to count documents: %v", err)), nil
		}
		return mcp.NewToolResultStructured(stats, formatStats(stats)), nil
	}
}

func formatAnswer(result *models.AnswerResult) string {
	var sb strings.Builder
	sb.WriteString(result.Answer)
	sb.WriteString("\n")

	if len(result.Sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for i, s := range result.Sources {
			sb.WriteString(fmt.Sprintf("%d. [%s](%s) (%s, %s)\n", i+1, s.Title, s.URL, s.Source, s.Category))
		}
	}

	sb.WriteString(fmt.Sprintf("\n_conversation_id: %s_\n", result.ConversationID))
	return sb.String()
}

func formatSearchResults(query string, results []models.RankedResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\" (%d results)\n\n", query, len(results)))

	if len(results) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for i, r := range results {
		doc := r.Document
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, doc.Title))
		sb.WriteString(fmt.Sprintf("**Source:** %s (%s)  **Score:** %.1f\n", doc.Source, doc.Category, r.Score))
		if doc.URL != "" {
			sb.WriteString(fmt.Sprintf("**URL:** %s\n", doc.URL))
		}
		sb.WriteString("\n")
		sb.WriteString(preview(doc.ContentFull))
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

func formatEvents(events []*models.Document) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Events (%d)\n\n", len(events)))

	for _, e := range events {
		sb.WriteString(fmt.Sprintf("- **%s**", e.Title))
		if e.DateStart != nil {
			sb.WriteString(" " + e.DateStart.Format("Mon Jan 2 2006 15:04"))
		}
		if e.Location != "" {
			sb.WriteString(" @ " + e.Location)
		}
		if e.URL != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", e.URL))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatStats(stats *models.DocumentStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total documents: %d\n", stats.Total))
	printCounts(&sb, "By source", stats.BySource)
	printCounts(&sb, "By category", stats.ByCategory)
	return sb.String()
}

// preview truncates by runes
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewChars {
		return content
	}
	return string(runes[:previewChars]) + "..."
}
