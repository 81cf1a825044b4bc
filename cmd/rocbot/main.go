package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
)

var (
	// Persistent flags
	configFiles []string
	serverPort  int
	serverHost  string

	// Global state, resolved before any subcommand runs
	config *common.Config
	logger arbor.ILogger
)

// defaultConfigPaths are tried in order when no --config is given
var defaultConfigPaths = []string{"rocbot.toml", "deployments/local/rocbot.toml"}

var rootCmd = &cobra.Command{
	Use:   "rocbot",
	Short: "Answer questions about Rochester, NY from a local knowledge base",
	Long: `rocbot ranks stored community documents against a question, grounds a
generated answer in the best matches and falls back to a disclaimed
general-knowledge answer when the knowledge base has nothing relevant.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")

	rootCmd.AddCommand(serveCmd, askCmd, statsCmd, loadCmd, keysCmd, mcpCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence shared by every command:
// defaults, config files, environment, then CLI flag overrides, then the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	paths := configFiles
	if len(paths) == 0 {
		for _, candidate := range defaultConfigPaths {
			if _, err := os.Stat(candidate); err == nil {
				paths = []string{candidate}
				break
			}
		}
	}

	var err error
	config, err = common.LoadFromFiles(paths...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", paths, err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	// stdout belongs to the MCP protocol
	if cmd == mcpCmd {
		config.Logging.Output = []string{"file"}
	}

	logger = common.InitLogger(config)

	logger.Debug().
		Strs("config_files", paths).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Str("search_mode", config.Search.Mode).
		Str("badger_path", config.Storage.Badger.Path).
		Msg("Resolved configuration")

	return nil
}
