// Package cli wires the ingestion engine's commands: the status server,
// one-shot file imports, and live sync runs.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the optional YAML configuration overlay.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ingestd",
	Short: "Invoice report ingestion and reconciliation engine",
	Long: `ingestd turns point-of-sale "Invoice Detail Report" exports into
normalized invoice records and reconciles them against the back-office
store, which is also fed by a live sync from the POS database.

Example usage:
  ingestd import report-2026-08.txt   # Import one report file
  ingestd sync                        # Run a live sync against the POS bridge
  ingestd serve                       # Serve batch progress for the dashboard`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the optional configuration overlay file",
	)
}
