package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KeyzrSoze/signals/internal/contracts"
)

// statusCmd prints the configured inputs and current state.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and pipeline state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	fmt.Printf("env: %s  ledger backend: %s\n", cfg.Env, cfg.Ledger.Backend)
	fmt.Printf("lookahead: %dd  risk tolerance: %dd  windows: %d/%d\n",
		cfg.Pipeline.LookaheadDays, cfg.Pipeline.RiskToleranceDays,
		cfg.Pipeline.MomentumWindow, cfg.Pipeline.VolatilityWindow)

	inputs := map[string]string{
		"price spine":     cfg.Data.Resolve(cfg.Data.PriceSpine),
		"entity map":      cfg.Data.Resolve(cfg.Data.EntityMap),
		"shortage events": cfg.Data.Resolve(cfg.Data.ShortageEvents),
		"risk events":     cfg.Data.Resolve(cfg.Data.RiskEvents),
		"model scores":    cfg.Data.Resolve(cfg.Data.Scores),
	}
	for name, path := range inputs {
		state := "ok"
		if _, err := os.Stat(path); err != nil {
			state = "missing"
		}
		fmt.Printf("  %-16s %-8s %s\n", name, state, path)
	}

	rows, err := a.runner.LoadFeatureTable()
	switch {
	case errors.Is(err, contracts.ErrMissingInput):
		fmt.Println("feature table: not built")
	case err != nil:
		return err
	default:
		fmt.Printf("feature table: %d rows\n", len(rows))
	}

	records, err := a.ledger.Records(cmd.Context())
	if err != nil {
		return err
	}
	pending := 0
	for _, rec := range records {
		if !rec.Resolved() {
			pending++
		}
	}
	fmt.Printf("registry: %d records, %d pending\n", len(records), pending)

	return nil
}
