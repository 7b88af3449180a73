package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KeyzrSoze/signals/internal/ledger"
)

// ledgerCmd groups the prediction registry operations.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Prediction registry operations",
	Long: `Operate on the append-only prediction registry.

Subcommands:
  log        - log predictions for the latest feature slice
  reconcile  - settle matured predictions against ground truth
  show       - print registry counts
  scorecard  - print realized prediction quality

Example:
  go run ./cmd/signals ledger reconcile
  go run ./cmd/signals ledger scorecard`,
}

var (
	ledgerLogCmd = &cobra.Command{
		Use:   "log",
		Short: "Log predictions for the latest feature slice",
		RunE:  runLedgerLog,
	}

	ledgerReconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Settle matured predictions against ground truth",
		RunE:  runLedgerReconcile,
	}

	ledgerShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print registry counts",
		RunE:  runLedgerShow,
	}

	ledgerScorecardCmd = &cobra.Command{
		Use:   "scorecard",
		Short: "Print realized prediction quality",
		RunE:  runLedgerScorecard,
	}
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerLogCmd)
	ledgerCmd.AddCommand(ledgerReconcileCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerScorecardCmd)
}

func runLedgerLog(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.runner.LoadFeatureTable()
	if err != nil {
		return fmt.Errorf("load feature table (run 'features' first): %w", err)
	}

	result, err := a.runner.LedgerCycle(cmd.Context(), rows, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("reconciled %d, logged %d predictions\n", result.Resolved, result.Logged)
	return nil
}

func runLedgerReconcile(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	resolved, err := a.runner.ReconcileDue(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("resolved %d predictions\n", resolved)
	return nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.ledger.Records(cmd.Context())
	if err != nil {
		return err
	}

	pending, resolved := 0, 0
	for _, rec := range records {
		if rec.Resolved() {
			resolved++
		} else {
			pending++
		}
	}

	fmt.Printf("registry: %d records (%d pending, %d resolved)\n",
		len(records), pending, resolved)
	return nil
}

func runLedgerScorecard(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.ledger.Records(cmd.Context())
	if err != nil {
		return err
	}

	card := ledger.BuildScorecard(records,
		a.cfg.Pipeline.SpikeScoreCutoff, a.cfg.Pipeline.SpikeReturnCutoff)

	fmt.Printf("predictions: %d total, %d pending, %d resolved\n",
		card.Total, card.Pending, card.Resolved)
	fmt.Printf("spike calls: %d, realized: %d, hits: %d\n",
		card.SpikeCalls, card.RealizedSpikes, card.TruePositives)
	fmt.Printf("precision: %.3f  recall: %.3f  mean outcome: %+.4f\n",
		card.Precision, card.Recall, card.MeanOutcome)

	for _, bucket := range card.ByDate {
		fmt.Printf("  %s: %d predicted, %d resolved, %d hits\n",
			bucket.PredictionDate.Format("2006-01-02"),
			bucket.Total, bucket.Resolved, bucket.TruePositives)
	}
	return nil
}
