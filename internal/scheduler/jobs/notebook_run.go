package jobs

import (
	"context"

	"github.com/alphadesk/tradedash/internal/runner"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// DefaultRunSchedule is weekdays at 18:00, after the market close
const DefaultRunSchedule = "0 0 18 * * 1-5"

// NotebookRunJob executes the notebook pipeline once per tick
type NotebookRunJob struct {
	runner   *runner.Runner
	schedule string
	logger   *logger.Logger
}

// NewNotebookRunJob creates a new notebook run job. An empty schedule
// means DefaultRunSchedule.
func NewNotebookRunJob(r *runner.Runner, schedule string, log *logger.Logger) *NotebookRunJob {
	if schedule == "" {
		schedule = DefaultRunSchedule
	}
	return &NotebookRunJob{
		runner:   r,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *NotebookRunJob) Name() string {
	return "notebook_run"
}

// Schedule returns the cron schedule
func (j *NotebookRunJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline
func (j *NotebookRunJob) Run(ctx context.Context) error {
	rec, err := j.runner.Run(ctx)
	if rec != nil {
		j.logger.WithFields(map[string]interface{}{
			"run_id":   rec.RunID,
			"run_date": rec.RunDate,
			"status":   rec.Status,
		}).Info("Scheduled notebook run finished")
	}
	return err
}
