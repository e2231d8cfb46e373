package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/tradedash/pkg/logger"
)

type call struct {
	input, output string
	params        map[string]string
}

type fakeExecutor struct {
	calls  []call
	failAt int // 1-based, 0 never
	panics bool
}

func (f *fakeExecutor) Execute(ctx context.Context, input, output string, params map[string]string, stdout, stderr io.Writer) error {
	f.calls = append(f.calls, call{input: input, output: output, params: params})
	fmt.Fprintf(stdout, "Executing %s\n", filepath.Base(input))

	if len(f.calls) == f.failAt {
		if f.panics {
			panic("kernel died")
		}
		fmt.Fprint(stderr, "Traceback (most recent call last):\nValueError: bad frame")
		return errors.New("exit status 1")
	}
	return nil
}

func newTestRunner(t *testing.T, exec Executor) (*Runner, string) {
	t.Helper()

	base := t.TempDir()
	r := New(Config{
		BaseDir: base,
		RunsDir: filepath.Join(base, "runs"),
		LogPath: filepath.Join(base, "run_log.txt"),
	}, exec, logger.Nop())
	r.now = func() time.Time { return time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "run-1" }
	return r, base
}

func readLog(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), sc.Text())
		entries = append(entries, e)
	}
	return entries
}

func countLevel(entries []map[string]interface{}, level string) int {
	n := 0
	for _, e := range entries {
		if e["level"] == level {
			n++
		}
	}
	return n
}

func TestRunSuccess(t *testing.T) {
	exec := &fakeExecutor{}
	r, base := newTestRunner(t, exec)

	rec, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, "2026-01-05", rec.RunDate)
	require.Len(t, rec.Steps, 3)

	require.Len(t, exec.calls, 3)
	assert.Equal(t, filepath.Join(base, "ML_Trading_File1.ipynb"), exec.calls[0].input)
	assert.Equal(t, filepath.Join(base, "runs", "ML_Trading_File1_2026-01-05.ipynb"), exec.calls[0].output)
	assert.Equal(t, filepath.Join(base, "runs", "Production_v1.0_2026-01-05.ipynb"), exec.calls[2].output)
	assert.Equal(t, map[string]string{"run_date": "2026-01-05"}, exec.calls[1].params)

	entries := readLog(t, filepath.Join(base, "run_log.txt"))
	assert.Equal(t, 0, countLevel(entries, "error"))
	assert.Equal(t, "Run started", entries[0]["message"])
	assert.Equal(t, "Run finished", entries[len(entries)-1]["message"])
	assert.Equal(t, "success", entries[len(entries)-1]["status"])

	for _, e := range entries {
		assert.Equal(t, "run-1", e["run_id"])
	}

	info, err := os.Stat(filepath.Join(base, "runs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	exec := &fakeExecutor{failAt: 2}
	r, base := newTestRunner(t, exec)

	rec, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunFailed))

	// third notebook never invoked
	assert.Len(t, exec.calls, 2)

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "Alpha Factors", rec.FailedStep)
	require.Len(t, rec.Steps, 2)
	assert.True(t, rec.Steps[0].Success)
	assert.False(t, rec.Steps[1].Success)

	entries := readLog(t, filepath.Join(base, "run_log.txt"))
	require.Equal(t, 1, countLevel(entries, "error"))

	errIdx := -1
	for i, e := range entries {
		if e["level"] == "error" {
			errIdx = i
		}
	}
	last := entries[len(entries)-1]
	assert.Equal(t, len(entries)-2, errIdx, "error entry is followed directly by the finish entry")
	assert.Equal(t, "Run finished", last["message"])
	assert.Equal(t, "failed", last["status"])
	assert.Equal(t, "Alpha Factors", entries[errIdx]["step"])

	// notebook stderr was relayed into the run log
	relayed := 0
	for _, e := range entries {
		if e["stream"] == "stderr" {
			relayed++
		}
	}
	assert.Equal(t, 2, relayed)
}

func TestRunRecoversExecutorPanic(t *testing.T) {
	exec := &fakeExecutor{failAt: 1, panics: true}
	r, base := newTestRunner(t, exec)

	rec, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, rec.Error, "kernel died")
	assert.Len(t, exec.calls, 1)

	entries := readLog(t, filepath.Join(base, "run_log.txt"))
	assert.Equal(t, 1, countLevel(entries, "error"))
}

func TestRunAppendsToLog(t *testing.T) {
	r, base := newTestRunner(t, &fakeExecutor{})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	first := len(readLog(t, filepath.Join(base, "run_log.txt")))

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*first, len(readLog(t, filepath.Join(base, "run_log.txt"))))
}

func TestRunCancelledContext(t *testing.T) {
	exec := &fakeExecutor{}
	r, _ := newTestRunner(t, exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := r.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, exec.calls)
	assert.Equal(t, "Data Pipeline", rec.FailedStep)
}

func TestRunPersistsToStore(t *testing.T) {
	store := NewMemoryStore(10)
	r, _ := newTestRunner(t, &fakeExecutor{failAt: 3})
	r.WithStore(store)

	_, err := r.Run(context.Background())
	require.Error(t, err)

	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "Production Model & Strategy", runs[0].FailedStep)
}

func TestMemoryStoreOrderingAndCap(t *testing.T) {
	store := NewMemoryStore(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveRun(context.Background(), &RunRecord{
			RunID:     fmt.Sprintf("r%d", i),
			StartedAt: base.AddDate(0, 0, i),
		}))
	}

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)
	assert.Equal(t, "r1", runs[1].RunID)
}

func TestMemoryStoreDefaultLimit(t *testing.T) {
	store := NewMemoryStore(50)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultListLimit+5; i++ {
		require.NoError(t, store.SaveRun(context.Background(), &RunRecord{
			RunID:     fmt.Sprintf("r%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, DefaultListLimit)
	assert.Equal(t, fmt.Sprintf("r%d", DefaultListLimit+4), runs[0].RunID)

	runs, err = store.ListRuns(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRunCreatesBaseDir(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "base")
	r := New(Config{
		BaseDir: base,
		RunsDir: filepath.Join(root, "elsewhere", "runs"),
		LogPath: filepath.Join(root, "logs", "run_log.txt"),
	}, &fakeExecutor{}, logger.Nop())

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.DirExists(t, base)
	assert.DirExists(t, filepath.Join(root, "elsewhere", "runs"))
	assert.FileExists(t, filepath.Join(root, "logs", "run_log.txt"))
}
