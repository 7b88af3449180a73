package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/internal/dataset"
	"github.com/KeyzrSoze/signals/internal/dynamics"
	"github.com/KeyzrSoze/signals/internal/features"
	"github.com/KeyzrSoze/signals/internal/fusion"
	"github.com/KeyzrSoze/signals/internal/ledger"
	"github.com/KeyzrSoze/signals/internal/market"
	"github.com/KeyzrSoze/signals/pkg/config"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
	"github.com/KeyzrSoze/signals/pkg/redis"
)

// Runner wires the full pipeline: load inputs, aggregate market
// structure, compute dynamics, fuse events, compose the feature table,
// and drive the prediction ledger. Invocations are serialized by the
// run lock; within one invocation the stages are strictly sequential.
type Runner struct {
	cfg        *config.Config
	loader     *dataset.Loader
	aggregator *market.Aggregator
	calculator *dynamics.Calculator
	composer   *features.Composer
	ledger     *ledger.Ledger
	lock       *redis.RunLock
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewRunner assembles a runner from the shared config, ledger, and lock.
func NewRunner(cfg *config.Config, led *ledger.Ledger, lock *redis.RunLock, log *logger.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		cfg:        cfg,
		loader:     dataset.NewLoader(log, m),
		aggregator: market.NewAggregator(log),
		calculator: dynamics.NewCalculator(cfg.Pipeline, log),
		composer:   features.NewComposer(cfg.Pipeline, log, m),
		ledger:     led,
		lock:       lock,
		log:        log.Component("pipeline"),
		metrics:    m,
	}
}

// BuildFeatures runs the fusion pipeline end to end and persists the
// feature table. The price spine and entity map are hard requirements;
// a missing event stream degrades to an empty joiner with a warning, so
// the table is still produced with conservative defaults.
func (r *Runner) BuildFeatures(ctx context.Context) ([]contracts.FeatureRow, error) {
	start := time.Now()

	spine, err := r.loader.PriceSpine(r.cfg.Data.Resolve(r.cfg.Data.PriceSpine))
	if err != nil {
		return nil, fmt.Errorf("load price spine: %w", err)
	}
	entities, err := r.loader.EntityMap(r.cfg.Data.Resolve(r.cfg.Data.EntityMap))
	if err != nil {
		return nil, fmt.Errorf("load entity map: %w", err)
	}

	shortageEvents, err := r.loader.ShortageEvents(r.cfg.Data.Resolve(r.cfg.Data.ShortageEvents))
	if err != nil {
		if !errors.Is(err, contracts.ErrMissingInput) {
			return nil, fmt.Errorf("load shortage events: %w", err)
		}
		r.log.WithError(err).Warn("shortage events unavailable, fusing without them")
		shortageEvents = nil
	}
	riskEvents, err := r.loader.RiskEvents(r.cfg.Data.Resolve(r.cfg.Data.RiskEvents))
	if err != nil {
		if !errors.Is(err, contracts.ErrMissingInput) {
			return nil, fmt.Errorf("load risk events: %w", err)
		}
		r.log.WithError(err).Warn("risk events unavailable, fusing without them")
		riskEvents = nil
	}
	r.observe("load", start)

	aggStart := time.Now()
	snapshots := r.aggregator.Compute(spine, entities)
	dynRows := r.calculator.Compute(spine)
	r.observe("aggregate", aggStart)

	fuseStart := time.Now()
	tolerance := time.Duration(r.cfg.Pipeline.RiskToleranceDays) * 24 * time.Hour
	rows := r.composer.Compose(features.Inputs{
		Spine:     spine,
		Entities:  entities,
		Snapshots: snapshots,
		Dynamics:  dynRows,
		Shortages: fusion.NewShortageJoiner(shortageEvents, r.log),
		Risks:     fusion.NewRiskJoiner(riskEvents, tolerance, r.log),
	})
	r.observe("compose", fuseStart)

	persistStart := time.Now()
	outPath := r.cfg.Data.Resolve(r.cfg.Data.FeatureTable)
	if err := features.WriteTable(outPath, rows); err != nil {
		return nil, fmt.Errorf("persist feature table: %w", err)
	}
	r.observe("persist", persistStart)

	r.log.WithFields(map[string]interface{}{
		"rows":    len(rows),
		"output":  outPath,
		"elapsed": time.Since(start).String(),
	}).Info("feature table built")

	return rows, nil
}

// CycleResult reports what one ledger cycle did.
type CycleResult struct {
	Resolved int
	Logged   int
}

// LedgerCycle settles matured predictions, then logs new ones for the
// given feature rows. Reconciliation always runs first so a prediction
// can never be logged and settled in the same pass. Missing ground
// truth or model scores degrade the respective half of the cycle to a
// warning; the registry keeps its prior state for that half.
func (r *Runner) LedgerCycle(ctx context.Context, rows []contracts.FeatureRow, now time.Time) (CycleResult, error) {
	var result CycleResult
	start := time.Now()

	truth, err := r.loader.PriceSpine(r.cfg.Data.Resolve(r.cfg.Data.GroundTruth))
	switch {
	case errors.Is(err, contracts.ErrMissingInput):
		r.log.WithError(err).Warn("ground truth unavailable, skipping reconciliation")
	case err != nil:
		return result, fmt.Errorf("load ground truth: %w", err)
	default:
		result.Resolved, err = r.ledger.Reconcile(ctx, truth, now)
		if err != nil {
			return result, fmt.Errorf("reconcile: %w", err)
		}
	}

	scores, err := r.loader.Scores(r.cfg.Data.Resolve(r.cfg.Data.Scores))
	switch {
	case errors.Is(err, contracts.ErrMissingInput):
		r.log.WithError(err).Warn("model scores unavailable, skipping prediction log")
	case err != nil:
		return result, fmt.Errorf("load scores: %w", err)
	default:
		result.Logged, err = r.ledger.Log(ctx, rows, scores, now)
		if err != nil {
			return result, fmt.Errorf("log predictions: %w", err)
		}
	}

	r.observe("ledger", start)
	return result, nil
}

// RunCycle is the scheduled entry point: acquire the run lock, build
// the feature table, then run the ledger cycle against it.
func (r *Runner) RunCycle(ctx context.Context, now time.Time) (CycleResult, error) {
	release, err := r.lock.Acquire(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	rows, err := r.BuildFeatures(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	return r.LedgerCycle(ctx, rows, now)
}

// ReconcileDue settles matured predictions without logging new ones,
// for off-cycle reconciliation runs between feature builds.
func (r *Runner) ReconcileDue(ctx context.Context, now time.Time) (int, error) {
	release, err := r.lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	truth, err := r.loader.PriceSpine(r.cfg.Data.Resolve(r.cfg.Data.GroundTruth))
	if err != nil {
		if errors.Is(err, contracts.ErrMissingInput) {
			r.log.WithError(err).Warn("ground truth unavailable, skipping reconciliation")
			return 0, nil
		}
		return 0, fmt.Errorf("load ground truth: %w", err)
	}
	return r.ledger.Reconcile(ctx, truth, now)
}

// LoadFeatureTable reads the persisted feature table, for ledger runs
// that reuse a previously built table.
func (r *Runner) LoadFeatureTable() ([]contracts.FeatureRow, error) {
	return features.ReadTable(r.cfg.Data.Resolve(r.cfg.Data.FeatureTable))
}

// Ledger exposes the underlying ledger for read-only consumers.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

func (r *Runner) observe(stage string, start time.Time) {
	r.metrics.RunDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
