package jobs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/tradedash/internal/dataset"
	"github.com/alphadesk/tradedash/internal/runner"
	"github.com/alphadesk/tradedash/pkg/config"
	"github.com/alphadesk/tradedash/pkg/httputil"
	"github.com/alphadesk/tradedash/pkg/logger"
)

type countingExecutor struct {
	calls int
	err   error
}

func (e *countingExecutor) Execute(ctx context.Context, input, output string, params map[string]string, stdout, stderr io.Writer) error {
	e.calls++
	return e.err
}

func newRunner(t *testing.T, exec runner.Executor) *runner.Runner {
	base := t.TempDir()
	return runner.New(runner.Config{
		BaseDir: base,
		RunsDir: filepath.Join(base, "runs"),
		LogPath: filepath.Join(base, "run_log.txt"),
	}, exec, logger.Nop())
}

func TestNotebookRunJob(t *testing.T) {
	exec := &countingExecutor{}
	job := NewNotebookRunJob(newRunner(t, exec), "", logger.Nop())

	assert.Equal(t, "notebook_run", job.Name())
	assert.Equal(t, DefaultRunSchedule, job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 3, exec.calls)
}

func TestNotebookRunJobFailure(t *testing.T) {
	exec := &countingExecutor{err: errors.New("exit status 1")}
	job := NewNotebookRunJob(newRunner(t, exec), "@daily", logger.Nop())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, runner.ErrRunFailed))
	assert.Equal(t, 1, exec.calls)
}

func TestDatasetRefreshJob(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("sharpe,win_rate\n1.1,0.5\n"))
	}))
	defer server.Close()

	cfg := &config.Config{Env: "test", LogLevel: "error"}
	src := dataset.NewCachedSource(
		dataset.NewRemoteSource(httputil.New(cfg, logger.Nop()), server.URL, "remote"),
		nil, 0,
	)
	job := NewDatasetRefreshJob(src, dataset.NewLoader(logger.Nop()), "", logger.Nop())

	assert.Equal(t, "dataset_refresh", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, hits)
}
