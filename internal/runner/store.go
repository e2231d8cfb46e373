package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultListLimit applies when ListRuns is given a limit <= 0
const DefaultListLimit = 20

// RunStore persists run records. ListRuns returns the newest runs first,
// at most limit of them, or DefaultListLimit when limit <= 0.
type RunStore interface {
	SaveRun(ctx context.Context, rec *RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// MemoryStore keeps the most recent runs in process
type MemoryStore struct {
	mu   sync.RWMutex
	runs []RunRecord
	max  int
}

// NewMemoryStore keeps at most max runs
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryStore{max: max}
}

func (s *MemoryStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, *rec)
	if len(s.runs) > s.max {
		s.runs = s.runs[len(s.runs)-s.max:]
	}
	return nil
}

// ListRuns returns newest first
func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunRecord, len(s.runs))
	copy(out, s.runs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Repository stores runs in PostgreSQL
// ⭐ SSOT: 실행 이력 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS runner;
	CREATE TABLE IF NOT EXISTS runner.runs (
		run_id      TEXT PRIMARY KEY,
		run_date    TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		status      TEXT NOT NULL,
		failed_step TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT '',
		steps       JSONB NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runner.runs (started_at DESC);
`

// EnsureSchema creates the runs table if needed
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create runner schema: %w", err)
	}
	return nil
}

// SaveRun upserts a run record
func (r *Repository) SaveRun(ctx context.Context, rec *RunRecord) error {
	stepsJSON, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO runner.runs (
			run_id, run_date, started_at, finished_at, status, failed_step, error, steps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			failed_step = EXCLUDED.failed_step,
			error = EXCLUDED.error,
			steps = EXCLUDED.steps
	`

	_, err = r.pool.Exec(ctx, query,
		rec.RunID, rec.RunDate, rec.StartedAt, rec.FinishedAt,
		rec.Status, rec.FailedStep, rec.Error, stepsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// ListRuns returns the newest runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT run_id, run_date, started_at, finished_at, status, failed_step, error, steps
		FROM runner.runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var stepsJSON []byte

		if err := rows.Scan(
			&rec.RunID, &rec.RunDate, &rec.StartedAt, &rec.FinishedAt,
			&rec.Status, &rec.FailedStep, &rec.Error, &stepsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal(stepsJSON, &rec.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}
