package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/KeyzrSoze/signals/internal/ledger"
	"github.com/KeyzrSoze/signals/internal/pipeline"
	"github.com/KeyzrSoze/signals/pkg/config"
	"github.com/KeyzrSoze/signals/pkg/database"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
	"github.com/KeyzrSoze/signals/pkg/redis"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	runner  *pipeline.Runner
	ledger  *ledger.Ledger

	db    *database.DB
	redis *redis.Client
}

// bootstrap loads config and wires the pipeline. Commands that only
// read the registry still go through here so every invocation sees the
// same construction path.
func bootstrap(ctx context.Context) (*app, error) {
	if configFile != "" {
		os.Setenv("PIPELINE_CONFIG", configFile)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	m := metrics.New()

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	lock := redis.NewRunLock(redisClient, "signals:run", cfg.Ledger.LockTTL)

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		redis:   redisClient,
	}

	var store ledger.Store
	switch cfg.Ledger.Backend {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db

		pg := ledger.NewPGStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		store = pg
	default:
		store = ledger.NewFileStore(cfg.Data.Resolve(cfg.Ledger.RegistryPath))
	}

	a.ledger = ledger.New(store, cfg.Pipeline.LookaheadDays, log, m)
	a.runner = pipeline.NewRunner(cfg, a.ledger, lock, log, m)

	return a, nil
}

// close releases the external connections.
func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// serveMetrics exposes the Prometheus endpoint for long-running
// commands. Best effort: a bind failure is logged, not fatal.
func (a *app) serveMetrics() {
	if !a.cfg.MetricsEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	go func() {
		addr := ":" + a.cfg.MetricsPort
		a.log.WithField("addr", addr).Info("serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.log.WithError(err).Warn("metrics server stopped")
		}
	}()
}
