package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KeyzrSoze/signals/internal/api"
	"github.com/KeyzrSoze/signals/internal/api/handlers"
)

// apiCmd starts the HTTP status server.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server over the registry and feature table.

Endpoints:
  GET  /health                - health check
  GET  /api/ledger            - registry summary (add ?records=true for rows)
  GET  /api/ledger/scorecard  - realized prediction quality
  GET  /api/features          - feature table summary
  POST /api/run               - trigger a full cycle

Example:
  go run ./cmd/signals api
  go run ./cmd/signals api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.serveMetrics()

	ledgerHandler := handlers.NewLedgerHandler(a.ledger, a.cfg.Pipeline, a.log)
	pipelineHandler := handlers.NewPipelineHandler(a.runner, a.log)
	router := api.NewRouter(ledgerHandler, pipelineHandler, a.log)

	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
