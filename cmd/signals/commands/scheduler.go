package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KeyzrSoze/signals/internal/scheduler"
	"github.com/KeyzrSoze/signals/internal/scheduler/jobs"
)

// schedulerCmd groups the scheduler daemon operations.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Start the scheduler daemon or trigger its jobs.

Registered jobs:
- fuse_cycle: Mondays at 6 AM (full fuse + ledger cycle)
- reconcile:  daily at 7 AM (settle matured predictions)

Subcommands:
  start  - start the scheduler daemon
  run    - trigger a job immediately

Example:
  go run ./cmd/signals scheduler start
  go run ./cmd/signals scheduler run fuse_cycle`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long: `Starts the scheduler and registers all jobs. The daemon runs
until interrupted with Ctrl+C; jobs in flight finish before exit.`,
		RunE: runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Trigger a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewFuseCycleJob(a.runner, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewReconcileJob(a.runner, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	a.serveMetrics()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	sched.Start()
	fmt.Println("scheduler running; Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	jobName := args[0]
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	// RunJob is asynchronous; wait for the history entry.
	fmt.Printf("job %s triggered\n", jobName)
	waitForJob(sched, jobName)
	return nil
}

// waitForJob blocks until the triggered job lands a result.
func waitForJob(sched *scheduler.Scheduler, jobName string) {
	for {
		time.Sleep(200 * time.Millisecond)
		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return
		}
		if results := history.GetLatestResults(1); len(results) > 0 {
			result := results[0]
			if result.Success {
				fmt.Printf("job %s completed in %s\n", jobName, result.Duration)
			} else {
				fmt.Printf("job %s failed: %s\n", jobName, result.Error)
			}
			return
		}
	}
}
