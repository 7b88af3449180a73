package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/KeyzrSoze/signals/internal/pipeline"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// FuseCycleJob runs the full weekly cycle: rebuild the feature table,
// reconcile matured predictions, log new ones.
type FuseCycleJob struct {
	runner *pipeline.Runner
	logger *logger.Logger
}

// NewFuseCycleJob creates the weekly fusion job.
func NewFuseCycleJob(runner *pipeline.Runner, log *logger.Logger) *FuseCycleJob {
	return &FuseCycleJob{
		runner: runner,
		logger: log,
	}
}

// Name returns the job name.
func (j *FuseCycleJob) Name() string {
	return "fuse_cycle"
}

// Schedule returns the cron schedule: Mondays at 6 AM, after the
// upstream collectors have published the week's files.
func (j *FuseCycleJob) Schedule() string {
	return "0 0 6 * * 1"
}

// Run executes the cycle.
func (j *FuseCycleJob) Run(ctx context.Context) error {
	j.logger.Info("starting scheduled fuse cycle")

	result, err := j.runner.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("fuse cycle: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"resolved": result.Resolved,
		"logged":   result.Logged,
	}).Info("fuse cycle completed")
	return nil
}
