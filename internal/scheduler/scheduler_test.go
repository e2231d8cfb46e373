package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/tradedash/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	err      error
	calls    int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(ctx context.Context) error {
	j.calls++
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "0 0 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@every 1h"}))

	assert.Error(t, s.AddJob(&stubJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&stubJob{name: "c", schedule: "not a schedule"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRunJobIsSynchronousAndNotRetried(t *testing.T) {
	s := New(logger.Nop())
	job := &stubJob{name: "notebook_run", schedule: "@daily", err: errors.New("boom")}
	require.NoError(t, s.AddJob(job))

	err := s.RunJob(context.Background(), "notebook_run")
	require.Error(t, err)
	assert.Equal(t, 1, job.calls)

	history, err := s.GetJobHistory("notebook_run")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, "boom", history.Results[0].Error)
}

func TestRunJobUnknown(t *testing.T) {
	s := New(logger.Nop())
	assert.Error(t, s.RunJob(context.Background(), "missing"))
}

func TestJobStats(t *testing.T) {
	s := New(logger.Nop())
	job := &stubJob{name: "j", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob(context.Background(), "j"))
	job.err = errors.New("fail")
	require.Error(t, s.RunJob(context.Background(), "j"))
	job.err = nil
	require.NoError(t, s.RunJob(context.Background(), "j"))

	st := s.GetJobStats()["j"]
	assert.Equal(t, "@daily", st.Schedule)
	assert.Equal(t, 3, st.TotalRuns)
	assert.Equal(t, 2, st.SuccessCount)
	assert.Equal(t, 1, st.FailureCount)
	assert.InDelta(t, 2.0/3.0, st.SuccessRate, 1e-9)
	require.NotNil(t, st.LastRun)
	require.NotNil(t, st.LastSuccess)
	require.NotNil(t, st.LastFailure)
	assert.Equal(t, *st.LastRun, *st.LastSuccess)
}

func TestNextRunAfterStart(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&stubJob{name: "j", schedule: "0 0 18 * * 1-5"}))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("j")
	require.NoError(t, err)
	assert.False(t, next.IsZero())
	assert.Equal(t, 18, next.Hour())
}

func TestJobHistoryCap(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < MaxHistory+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, MaxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Empty(t, h.GetLatestResults(0))
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}
