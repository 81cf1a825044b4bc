package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/madhura1396/rocbot/internal/app"
	"github.com/madhura1396/rocbot/internal/common"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve rocbot tools over the Model Context Protocol (stdio)",
	Long:  `Exposes ask, search_documents, list_events and document_stats as MCP tools on stdin/stdout. Logs go to the log file only.`,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	application, err := app.New(cmd.Context(), config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	mcpServer := newMCPServer(application)

	logger.Info().Msg("MCP server listening on stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// newMCPServer registers the rocbot tools
func newMCPServer(application *app.App) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"rocbot",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	docs := application.StorageManager.DocumentStorage()
	mcpServer.AddTool(createAskTool(), handleAsk(application.ChatService, logger))
	mcpServer.AddTool(createSearchDocumentsTool(), handleSearchDocuments(application.Ranker, logger))
	mcpServer.AddTool(createListEventsTool(), handleListEvents(docs, logger))
	mcpServer.AddTool(createStatsTool(), handleStats(application.ChatService, logger))

	return mcpServer
}
