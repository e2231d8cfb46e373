package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alphadesk/tradedash/internal/dashboard"
	"github.com/alphadesk/tradedash/internal/dataset"
	"github.com/alphadesk/tradedash/internal/runner"
	"github.com/alphadesk/tradedash/internal/trend"
	"github.com/alphadesk/tradedash/pkg/config"
	"github.com/alphadesk/tradedash/pkg/database"
	"github.com/alphadesk/tradedash/pkg/httputil"
	"github.com/alphadesk/tradedash/pkg/logger"
	"github.com/alphadesk/tradedash/pkg/redis"
)

// deps holds the shared components and their cleanup
type deps struct {
	cfg    *config.Config
	log    *logger.Logger
	cache  *redis.Cache
	db     *database.DB
	rdb    *redis.Client
	client *httputil.Client
	remote *dataset.CachedSource
}

func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	d.db.Close()
}

// initDeps loads config and connects optional backends.
// An unreachable Redis only disables the cache; an unreachable database is an error.
func initDeps() (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	d := &deps{cfg: cfg, log: log}

	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, dataset cache disabled")
		cfg.Redis.Enabled = false
		rdb, _ = redis.New(cfg)
	}
	d.rdb = rdb
	d.cache = redis.NewCache(rdb, "tradedash")

	db, err := database.New(cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("Database disabled, run history kept in memory")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		d.db = db
		log.Info("Connected to database")
	}

	return d, nil
}

func (d *deps) httpClient() *httputil.Client {
	if d.client == nil {
		d.client = httputil.New(d.cfg, d.log)
	}
	return d.client
}

func (d *deps) cached(src dataset.Source) *dataset.CachedSource {
	ttl := d.cfg.Redis.CacheTTL
	if ttl <= 0 {
		ttl = redis.TTLDataset
	}
	return dataset.NewCachedSource(src, d.cache, ttl)
}

// resultsSource is the memoized remote trading results CSV
func (d *deps) resultsSource() *dataset.CachedSource {
	if d.remote == nil {
		d.remote = d.cached(dataset.NewRemoteSource(d.httpClient(), d.cfg.Sources.ResultsURL, "GitHub Remote"))
	}
	return d.remote
}

// newDashboard wires every dataset source into a dashboard service
func (d *deps) newDashboard() *dashboard.Service {
	cfg := d.cfg

	svc := dashboard.NewService(
		dataset.NewLoader(d.log),
		trend.NewScanner(cfg.RunsPath(), cfg.Sources.TrendPattern, d.log),
		dashboard.Options{
			DefaultSource: cfg.Dashboard.DefaultSource,
			PreviewRows:   cfg.Dashboard.PreviewRows,
		},
		d.log,
	)

	svc.Register(dashboard.SourceRemote, d.resultsSource(), dashboard.AggregateFirstRow)
	svc.Register(dashboard.SourceDataset,
		d.cached(dataset.NewRemoteSource(d.httpClient(), cfg.Sources.DatasetURL, "ML trading dataset")),
		dashboard.AggregateColumnMean)
	svc.Register(dashboard.SourceLocal, dataset.NewLocalSource(cfg.ResultsPath()), dashboard.AggregateFirstRow)

	dirs := make([]string, len(cfg.Sources.SearchDirs))
	for i, dir := range cfg.Sources.SearchDirs {
		dirs[i] = cfg.Sources.Path(dir)
	}
	svc.Register(dashboard.SourceLatest, dataset.NewLatestLocalSource(dirs, cfg.Sources.TrendPattern+"*.csv"), dashboard.AggregateFirstRow)

	return svc
}

// runStore is Postgres when connected, memory otherwise
func (d *deps) runStore(ctx context.Context) (runner.RunStore, error) {
	if d.db == nil {
		return runner.NewMemoryStore(100), nil
	}

	repo := runner.NewRepository(d.db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// newRunner builds the batch runner from config
func (d *deps) newRunner(ctx context.Context) (*runner.Runner, error) {
	cfg := d.cfg

	pipeline, err := runner.LoadPipeline(cfg.Runner.PipelineFile)
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}

	store, err := d.runStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init run store: %w", err)
	}

	r := runner.New(runner.Config{
		BaseDir:  cfg.Sources.BaseDir,
		RunsDir:  cfg.RunsPath(),
		LogPath:  cfg.LogPath(),
		Pipeline: pipeline,
	}, runner.NewPapermillExecutor(cfg.Runner.PapermillBin), d.log)

	return r.WithStore(store), nil
}
