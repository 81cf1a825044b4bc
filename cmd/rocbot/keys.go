package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API keys",
	Long: `Stores provider API keys (gemini_api_key, claude_api_key) in the local key/value store.
Environment variables take precedence over stored keys.`,
}

var keysSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Store a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openStorage()
		if err != nil {
			return err
		}
		defer manager.Close()

		if err := manager.KeyValueStorage().Set(cmd.Context(), args[0], args[1], keysDescription); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", args[0])
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys with masked values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openStorage()
		if err != nil {
			return err
		}
		defer manager.Close()

		pairs, err := manager.KeyValueStorage().List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tUPDATED")
		for _, p := range pairs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Key, maskSecret(p.Value), p.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openStorage()
		if err != nil {
			return err
		}
		defer manager.Close()

		if err := manager.KeyValueStorage().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var keysDescription string

func init() {
	keysSetCmd.Flags().StringVar(&keysDescription, "description", "", "Optional note stored with the key")
	keysCmd.AddCommand(keysSetCmd, keysListCmd, keysDeleteCmd)
}

// maskSecret keeps the last four characters of a secret
func maskSecret(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
