package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "signals",
	Short: "Temporal signal fusion and prediction ledger for drug pricing",
	Long: `signals - drug price signal fusion and prediction tracking

Fuses weekly price observations with market structure, supply-shortage
events, and manufacturer-risk events into a point-in-time-correct
feature table, and tracks model predictions against realized prices in
an append-only registry.

Usage:
  go run ./cmd/signals [command]

Examples:
  go run ./cmd/signals features
  go run ./cmd/signals run
  go run ./cmd/signals ledger scorecard
  go run ./cmd/signals api
  go run ./cmd/signals scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
