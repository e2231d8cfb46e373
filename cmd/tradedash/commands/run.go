package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphadesk/tradedash/internal/runner"
	"github.com/alphadesk/tradedash/internal/trend"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the notebook pipeline once",
	Long: `Execute the notebooks in order with run_date set to today.

Every step's output is appended to the run log. The first failing notebook
aborts the remaining ones and the command exits non-zero.

Example:
  go run ./cmd/tradedash run
  PIPELINE_FILE=pipeline.yaml go run ./cmd/tradedash run`,
	RunE: runPipeline,
}

var (
	runDryRun bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the steps without executing them")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if runDryRun {
		return dryRun(out)
	}

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	r, err := d.newRunner(cmd.Context())
	if err != nil {
		return err
	}

	today := time.Now().Format(trend.DateLayout)
	printPlan(out, r.Pipeline().Plan(d.cfg.Sources.BaseDir, d.cfg.RunsPath(), today))

	steps := r.Pipeline().Steps
	rec, err := r.Run(cmd.Context())
	if rec != nil {
		for i, s := range rec.Steps {
			status := "✅"
			if !s.Success {
				status = "❌"
			}
			fmt.Printf("[%d/%d] %s %s (%.1fs)\n", i+1, len(steps), status, s.Name, s.Duration.Seconds())
		}
		PrintKeyValue("Run ID", rec.RunID, 8)
		PrintKeyValue("Log", d.cfg.LogPath(), 8)
	}

	if err != nil {
		if rec != nil && rec.FailedStep != "" {
			PrintError(fmt.Sprintf("Run failed at %s", rec.FailedStep))
		}
		return err
	}

	PrintSuccess("All notebooks executed successfully")
	return nil
}

// dryRun resolves the plan from config alone: no cache, database or executor
func dryRun(w io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pipeline, err := runner.LoadPipeline(cfg.Runner.PipelineFile)
	if err != nil {
		return fmt.Errorf("load pipeline: %w", err)
	}

	today := time.Now().Format(trend.DateLayout)
	printPlan(w, pipeline.Plan(cfg.Sources.BaseDir, cfg.RunsPath(), today))
	fmt.Fprintf(w, "Log: %s\n", cfg.LogPath())
	fmt.Fprintln(w, "Dry run, nothing executed")
	return nil
}

func printPlan(w io.Writer, plan []runner.PlannedStep) {
	fmt.Fprintln(w, "Notebook pipeline")
	for i, s := range plan {
		fmt.Fprintf(w, "%d. %s\n", i+1, s.Name)
		fmt.Fprintf(w, "   in:  %s\n", s.Input)
		fmt.Fprintf(w, "   out: %s\n", s.Output)
	}
}
