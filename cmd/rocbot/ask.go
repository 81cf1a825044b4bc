package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/madhura1396/rocbot/internal/app"
	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question from the command line",
	Long: `Answers one question, or starts an interactive session when no question is given.
Every question in an interactive session shares one conversation.`,
	RunE: runAsk,
}

var (
	askStream         bool
	askConversationID string
	askMaxSources     int
)

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "Print the answer as it is generated")
	askCmd.Flags().StringVar(&askConversationID, "conversation", "", "Conversation id (generated when empty)")
	askCmd.Flags().IntVar(&askMaxSources, "max-sources", 0, "Documents to ground the answer on (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	conversationID := askConversationID
	if conversationID == "" {
		conversationID = common.NewConversationID()
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return askOnce(ctx, application.ChatService, out, strings.Join(args, " "), conversationID)
	}

	fmt.Fprintln(out, "Ask about Rochester, NY. Empty line or Ctrl+D to quit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}
		if err := askOnce(ctx, application.ChatService, out, question, conversationID); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func askOnce(ctx context.Context, chatService interfaces.ChatService, out io.Writer, question, conversationID string) error {
	req := &models.AskRequest{
		Question:       question,
		ConversationID: conversationID,
		MaxSources:     askMaxSources,
	}

	if !askStream {
		result, err := chatService.Ask(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Answer)
		printSources(out, result.Sources)
		return nil
	}

	for event := range chatService.AskStream(ctx, req) {
		switch event.Type {
		case models.StreamEventToken:
			fmt.Fprint(out, event.Token)
		case models.StreamEventDone:
			fmt.Fprintln(out)
			printSources(out, event.Sources)
		case models.StreamEventError:
			fmt.Fprintln(out)
			return event.Err
		}
	}
	return nil
}

func printSources(out io.Writer, sources []models.Citation) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(out, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(out, "  %d. %s (%s) %s\n", i+1, s.Title, s.Source, s.URL)
	}
}
