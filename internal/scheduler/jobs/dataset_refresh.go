package jobs

import (
	"context"
	"fmt"

	"github.com/alphadesk/tradedash/internal/dataset"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// DatasetRefreshJob drops the memoized remote results and fetches them again,
// so dashboard requests are served from a warm cache
type DatasetRefreshJob struct {
	source   *dataset.CachedSource
	loader   *dataset.Loader
	schedule string
	logger   *logger.Logger
}

// NewDatasetRefreshJob creates a new refresh job
func NewDatasetRefreshJob(src *dataset.CachedSource, loader *dataset.Loader, schedule string, log *logger.Logger) *DatasetRefreshJob {
	if schedule == "" {
		schedule = "0 */10 * * * *"
	}
	return &DatasetRefreshJob{
		source:   src,
		loader:   loader,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DatasetRefreshJob) Name() string {
	return "dataset_refresh"
}

// Schedule returns the cron schedule
func (j *DatasetRefreshJob) Schedule() string {
	return j.schedule
}

// Run invalidates and reloads the dataset
func (j *DatasetRefreshJob) Run(ctx context.Context) error {
	if err := j.source.Invalidate(ctx); err != nil {
		j.logger.WithError(err).Warn("Failed to invalidate dataset cache")
	}

	ds, err := j.loader.Load(ctx, j.source)
	if err != nil {
		return fmt.Errorf("failed to refresh dataset: %w", err)
	}

	j.logger.WithField("rows", ds.Table.Len()).Debug("Dataset cache refreshed")
	return nil
}
