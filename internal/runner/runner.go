// Package runner executes the notebook pipeline once, strictly in order,
// with every step's output appended to a single structured run log.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alphadesk/tradedash/internal/telemetry"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// ErrRunFailed wraps the step error that aborted a run
var ErrRunFailed = errors.New("notebook run failed")

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// StepResult records one executed step
type StepResult struct {
	Name      string        `json:"name"`
	Notebook  string        `json:"notebook"`
	Output    string        `json:"output"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// RunRecord summarises one run
type RunRecord struct {
	RunID      string       `json:"run_id"`
	RunDate    string       `json:"run_date"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Status     string       `json:"status"`
	FailedStep string       `json:"failed_step,omitempty"`
	Error      string       `json:"error,omitempty"`
	Steps      []StepResult `json:"steps"`
}

// Config locates the runner's files
type Config struct {
	BaseDir  string
	RunsDir  string
	LogPath  string
	Pipeline *Pipeline
}

// Runner executes the pipeline
// ⭐ SSOT: 노트북 실행은 여기서만
type Runner struct {
	cfg      Config
	executor Executor
	store    RunStore
	logger   *logger.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a runner. A nil pipeline means DefaultPipeline.
func New(cfg Config, executor Executor, log *logger.Logger) *Runner {
	if cfg.Pipeline == nil {
		cfg.Pipeline = DefaultPipeline()
	}
	return &Runner{
		cfg:      cfg,
		executor: executor,
		logger:   log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithStore persists every finished run to store
func (r *Runner) WithStore(store RunStore) *Runner {
	r.store = store
	return r
}

// Pipeline returns the configured steps
func (r *Runner) Pipeline() *Pipeline {
	return r.cfg.Pipeline
}

// Run executes every step in order with run_date set to today. The first
// failing step aborts the rest; the returned error wraps ErrRunFailed.
// The run log always ends with a "Run finished" entry.
func (r *Runner) Run(ctx context.Context) (*RunRecord, error) {
	started := r.now()
	rec := &RunRecord{
		RunID:     r.newID(),
		RunDate:   started.Format("2006-01-02"),
		StartedAt: started,
		Status:    StatusSuccess,
		Steps:     make([]StepResult, 0, len(r.cfg.Pipeline.Steps)),
	}

	for _, dir := range []string{r.cfg.BaseDir, r.cfg.RunsDir, filepath.Dir(r.cfg.LogPath)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(r.cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	runLog := logger.NewWithWriter(f, "info").WithFields(map[string]interface{}{
		"run_id":   rec.RunID,
		"run_date": rec.RunDate,
	})
	runLog.Info("Run started")

	runErr := r.runSteps(ctx, rec, runLog)
	if runErr != nil {
		rec.Status = StatusFailed
		rec.Error = runErr.Error()
		runLog.WithError(runErr).WithField("step", rec.FailedStep).Error("Run failed")
	} else {
		runLog.Info("All notebooks executed successfully")
	}

	rec.FinishedAt = r.now()
	runLog.WithFields(map[string]interface{}{
		"status":   rec.Status,
		"duration": rec.FinishedAt.Sub(rec.StartedAt).String(),
	}).Info("Run finished")

	telemetry.Runs.WithLabelValues(rec.Status).Inc()
	r.persist(ctx, rec)

	if runErr != nil {
		return rec, fmt.Errorf("%w: %s: %w", ErrRunFailed, rec.FailedStep, runErr)
	}
	return rec, nil
}

func (r *Runner) runSteps(ctx context.Context, rec *RunRecord, runLog *logger.Logger) error {
	params := map[string]string{ParamRunDate: rec.RunDate}
	total := len(r.cfg.Pipeline.Steps)

	for i, step := range r.cfg.Pipeline.Steps {
		if err := ctx.Err(); err != nil {
			rec.FailedStep = step.Name
			return err
		}

		input := step.InputPath(r.cfg.BaseDir)
		output := filepath.Join(r.cfg.RunsDir, step.OutputName(rec.RunDate))

		stepLog := runLog.WithFields(map[string]interface{}{
			"step":     step.Name,
			"progress": fmt.Sprintf("%d/%d", i+1, total),
		})
		stepLog.WithField("notebook", filepath.Base(input)).Info("Running notebook")

		res := StepResult{Name: step.Name, Notebook: input, Output: output, StartedAt: r.now()}
		err := r.execute(ctx, stepLog, input, output, params)
		res.Duration = r.now().Sub(res.StartedAt)
		telemetry.ObserveNotebook(step.Stem(), res.StartedAt, err)

		if err != nil {
			res.Error = err.Error()
			rec.Steps = append(rec.Steps, res)
			rec.FailedStep = step.Name
			return err
		}

		res.Success = true
		rec.Steps = append(rec.Steps, res)
		stepLog.WithField("output", output).Info("Notebook completed")
	}
	return nil
}

// execute runs one notebook, converting a panic into an error
func (r *Runner) execute(ctx context.Context, stepLog *logger.Logger, input, output string, params map[string]string) (err error) {
	stdout := stepLog.LineWriter("stdout")
	stderr := stepLog.LineWriter("stderr")
	defer func() {
		stdout.Flush()
		stderr.Flush()
		if p := recover(); p != nil {
			err = fmt.Errorf("executor panic: %v", p)
		}
	}()

	return r.executor.Execute(ctx, input, output, params, stdout, stderr)
}

func (r *Runner) persist(ctx context.Context, rec *RunRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.WithError(err).WithField("run_id", rec.RunID).Warn("Failed to persist run record")
	}
}
