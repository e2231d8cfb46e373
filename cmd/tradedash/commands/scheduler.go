package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alphadesk/tradedash/internal/dataset"
	"github.com/alphadesk/tradedash/internal/scheduler"
	"github.com/alphadesk/tradedash/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Start the scheduler or manage its jobs.

Subcommands:
  start   - start the scheduler
  list    - list registered jobs
  run     - run one job now and wait for it
  status  - job statistics

Example:
  go run ./cmd/tradedash scheduler start
  go run ./cmd/tradedash scheduler list
  go run ./cmd/tradedash scheduler run notebook_run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler and schedule every registered job.

Registered jobs:
- notebook_run: $RUN_SCHEDULE (default weekdays 18:00), the notebook pipeline
- dataset_refresh: every 10 minutes, only when Redis is enabled

A run still in progress when its next tick fires is skipped. Failed jobs
are not retried. Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job statistics",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== tradedash Scheduler ===")

	sched, d, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.Close()

	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.Close()

	fmt.Println("Registered jobs:")
	printJobs(sched)

	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		line := fmt.Sprintf("%-16s %s", jobName, stats[jobName].Schedule)
		if next, err := sched.NextRun(jobName); err == nil && !next.IsZero() {
			line += "  next " + next.Format("2006-01-02 15:04:05")
		}
		PrintList([]string{line})
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, d, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.Close()

	runErr := sched.RunJob(cmd.Context(), jobName)
	printLastResult(out, sched, jobName)

	if runErr != nil {
		PrintError(fmt.Sprintf("Job %s failed", jobName))
		return fmt.Errorf("run job: %w", runErr)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed", jobName))
	return nil
}

// printLastResult shows the newest recorded result of jobName, if any
func printLastResult(w io.Writer, sched *scheduler.Scheduler, jobName string) {
	history, err := sched.GetJobHistory(jobName)
	if err != nil {
		return
	}

	for _, r := range history.GetLatestResults(1) {
		status := "success"
		if !r.Success {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(w, "%s  %s  %.1fs  %s\n", r.StartTime.Format("2006-01-02 15:04:05"), r.JobName, r.Duration.Seconds(), status)
	}
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.Close()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	// history only lives in this process; persisted runs come from the store
	store, err := d.runStore(cmd.Context())
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(cmd.Context(), 5)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println("Recent notebook runs:")
		for _, r := range runs {
			line := fmt.Sprintf("%s  %s  %s", r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.RunID)
			if r.FailedStep != "" {
				line += "  failed at " + r.FailedStep
			}
			PrintList([]string{line})
		}
	}

	return nil
}

func initScheduler(cmd *cobra.Command) (*scheduler.Scheduler, *deps, error) {
	d, err := initDeps()
	if err != nil {
		return nil, nil, err
	}

	r, err := d.newRunner(cmd.Context())
	if err != nil {
		d.Close()
		return nil, nil, err
	}

	sched := scheduler.New(d.log)

	if err := sched.AddJob(jobs.NewNotebookRunJob(r, d.cfg.Runner.Schedule, d.log)); err != nil {
		d.Close()
		return nil, nil, err
	}

	if d.cfg.Redis.Enabled {
		refresh := jobs.NewDatasetRefreshJob(d.resultsSource(), dataset.NewLoader(d.log), "", d.log)
		if err := sched.AddJob(refresh); err != nil {
			d.Close()
			return nil, nil, err
		}
	}

	return sched, d, nil
}
