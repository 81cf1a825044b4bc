package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>...",
	Short: "Import documents from TOML, YAML or JSON files",
	Long: `Reads [[documents]] records, validates them and upserts by URL.
Re-importing a URL updates the stored document and keeps its id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

var loadReplace bool

func init() {
	loadCmd.Flags().BoolVar(&loadReplace, "replace", false, "Delete all stored documents before importing")
}

func runLoad(cmd *cobra.Command, args []string) error {
	manager, err := openStorage()
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := cmd.Context()
	if loadReplace {
		if err := manager.DocumentStorage().ClearAll(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, path := range args {
		result, err := manager.LoadDocumentsFromFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d loaded (%d new), %d skipped\n", path, result.Loaded, result.Created, result.Skipped)
	}
	return nil
}
