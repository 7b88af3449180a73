package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// runCmd executes one full cycle: build features, reconcile, log.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full fuse-and-ledger cycle",
	Long: `Runs the complete cycle once, under the run lock:

1. Build the fused feature table
2. Reconcile matured predictions against ground truth
3. Log new predictions for the latest feature slice

Reconciliation always runs before logging, so a prediction can never be
logged and settled in the same pass.

Example:
  go run ./cmd/signals run`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	result, err := a.runner.RunCycle(cmd.Context(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}

	fmt.Printf("cycle complete in %s: reconciled %d, logged %d\n",
		time.Since(start).Round(time.Millisecond), result.Resolved, result.Logged)
	return nil
}
