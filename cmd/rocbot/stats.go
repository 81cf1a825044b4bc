package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts by source and category",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	manager, err := openStorage()
	if err != nil {
		return err
	}
	defer manager.Close()

	stats, err := manager.DocumentStorage().CountDocuments(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total documents: %d\n", stats.Total)
	printCounts(out, "By source", stats.BySource)
	printCounts(out, "By category", stats.ByCategory)
	return nil
}

func printCounts(out io.Writer, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "\n%s:\n", heading)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %d\n", k, counts[k])
	}
}
