package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/tradedash/pkg/config"
	"github.com/alphadesk/tradedash/pkg/database"
)

func TestRepositoryRoundTrip(t *testing.T) {
	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := database.New(&config.Config{Database: config.DatabaseConfig{
		Enabled:  true,
		URL:      url,
		MaxConns: 2,
		MinConns: 1,
	}})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	started := time.Now().UTC().Truncate(time.Microsecond)
	rec := &RunRecord{
		RunID:      uuid.NewString(),
		RunDate:    started.Format("2006-01-02"),
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Status:     StatusFailed,
		FailedStep: "Alpha Factors",
		Error:      "exit status 1",
		Steps: []StepResult{
			{Name: "Data Pipeline", Success: true, Duration: 30 * time.Second},
			{Name: "Alpha Factors", Error: "exit status 1"},
		},
	}
	require.NoError(t, repo.SaveRun(ctx, rec))

	// upsert keeps one row per run
	rec.Error = "exit status 2"
	require.NoError(t, repo.SaveRun(ctx, rec))

	runs, err := repo.ListRuns(ctx, 50)
	require.NoError(t, err)

	var found *RunRecord
	for i := range runs {
		if runs[i].RunID == rec.RunID {
			require.Nil(t, found, "duplicate run row")
			found = &runs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "exit status 2", found.Error)
	assert.Equal(t, "Alpha Factors", found.FailedStep)
	require.Len(t, found.Steps, 2)
	assert.Equal(t, 30*time.Second, found.Steps[0].Duration)

	_, err = db.Pool.Exec(ctx, "DELETE FROM runner.runs WHERE run_id = $1", rec.RunID)
	require.NoError(t, err)
}
