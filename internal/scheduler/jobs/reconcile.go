package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/KeyzrSoze/signals/internal/pipeline"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// ReconcileJob settles matured predictions daily, so outcomes land as
// soon as ground truth appears instead of waiting for the weekly cycle.
type ReconcileJob struct {
	runner *pipeline.Runner
	logger *logger.Logger
}

// NewReconcileJob creates the daily reconciliation job.
func NewReconcileJob(runner *pipeline.Runner, log *logger.Logger) *ReconcileJob {
	return &ReconcileJob{
		runner: runner,
		logger: log,
	}
}

// Name returns the job name.
func (j *ReconcileJob) Name() string {
	return "reconcile"
}

// Schedule returns the cron schedule (7 AM daily).
func (j *ReconcileJob) Schedule() string {
	return "0 0 7 * * *"
}

// Run executes the reconciliation.
func (j *ReconcileJob) Run(ctx context.Context) error {
	j.logger.Info("starting scheduled reconciliation")

	resolved, err := j.runner.ReconcileDue(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	j.logger.WithField("resolved", resolved).Info("reconciliation completed")
	return nil
}
