// Package postgres provides a Postgres-backed job store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for job rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore writes job rows into Postgres. The terminal-state guard and the
// progress clamp are enforced in SQL, so a single UPDATE is atomic per row.
type JobStore struct {
	pool  pgxPool
	table string
}

// NewJobStore creates a Postgres-backed JobStore using the provided config.
func NewJobStore(ctx context.Context, cfg Config) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "clone_jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool, table: table}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewJobStoreWithPool(pool pgxPool, table string) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "clone_jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &JobStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts the initial queued row.
func (s *JobStore) CreateJob(ctx context.Context, job clone.Job) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, status, progress, source_url, submitted_at)
VALUES ($1, $2, $3, $4, $5)`, s.table)
	if _, err := s.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.Progress, job.SourceURL, job.Submitted.UTC(),
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob loads one job row or returns clone.ErrNotFound.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (clone.Job, error) {
	query := fmt.Sprintf(`
SELECT id, status, progress, source_url,
       COALESCE(error_detail, ''), COALESCE(result_ref, ''),
       submitted_at, started_at, finished_at
FROM %s WHERE id = $1`, s.table)

	var (
		job    clone.Job
		status string
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &status, &job.Progress, &job.SourceURL,
		&job.ErrorDetail, &job.ResultRef,
		&job.Submitted, &job.Started, &job.Finished,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return clone.Job{}, clone.ErrNotFound
	}
	if err != nil {
		return clone.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = clone.JobStatus(status)
	return job, nil
}

// UpdateJobStatus advances the row; terminal rows are left untouched and
// progress only ever grows.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status clone.JobStatus,
	progress int,
	detail string,
) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	status = $2,
	progress = GREATEST(progress, $3),
	error_detail = CASE WHEN $2 = 'error' THEN $4 ELSE error_detail END,
	started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN now() ELSE started_at END,
	finished_at = CASE WHEN $2 IN ('complete', 'error') THEN now() ELSE finished_at END
WHERE id = $1 AND status NOT IN ('complete', 'error')`, s.table)

	tag, err := s.pool.Exec(ctx, query, jobID, string(status), progress, detail)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMiss(ctx, jobID)
	}
	return nil
}

// SetResult records the artifact ref and completes the job.
func (s *JobStore) SetResult(ctx context.Context, jobID string, ref string) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	status = 'complete',
	progress = 100,
	result_ref = $2,
	finished_at = now()
WHERE id = $1 AND status NOT IN ('complete', 'error')`, s.table)

	tag, err := s.pool.Exec(ctx, query, jobID, ref)
	if err != nil {
		return fmt.Errorf("set job result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMiss(ctx, jobID)
	}
	return nil
}

// classifyMiss separates "row does not exist" (an error) from "row is
// already terminal" (an idempotent no-op).
func (s *JobStore) classifyMiss(ctx context.Context, jobID string) error {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.table)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, jobID).Scan(&exists); err != nil {
		return fmt.Errorf("check job existence: %w", err)
	}
	if !exists {
		return clone.ErrNotFound
	}
	return nil
}
