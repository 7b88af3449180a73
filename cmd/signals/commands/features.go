package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// featuresCmd builds the fused feature table once and exits.
var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Build the fused feature table",
	Long: `Loads the price spine, entity map, and event streams, computes
market concentration and rolling dynamics, fuses the event signals with
backward as-of joins, and writes the feature table.

Missing event streams degrade to conservative defaults with a warning;
a missing price spine or entity map fails the run.

Example:
  go run ./cmd/signals features`,
	RunE: runFeatures,
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.runner.BuildFeatures(cmd.Context())
	if err != nil {
		return fmt.Errorf("build features: %w", err)
	}

	fmt.Printf("feature table written: %d rows -> %s\n",
		len(rows), a.cfg.Data.Resolve(a.cfg.Data.FeatureTable))
	return nil
}
