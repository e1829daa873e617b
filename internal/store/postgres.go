package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/acceptance-service/internal/model"
)

// acceptedJobsSchema is applied at startup. The primary key on job_id is
// the idempotency guarantee.
const acceptedJobsSchema = `
CREATE TABLE IF NOT EXISTS accepted_jobs (
	job_id           TEXT PRIMARY KEY,
	title            TEXT        NOT NULL,
	description      TEXT        NOT NULL DEFAULT '',
	location         TEXT        NOT NULL DEFAULT '',
	date_posted      TEXT        NOT NULL DEFAULT '',
	scheduled_at     TIMESTAMPTZ NOT NULL,
	duration_minutes INTEGER     NOT NULL,
	accepted_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS accepted_jobs_scheduled_at_idx ON accepted_jobs (scheduled_at);`

// PostgresStore implements AcceptedJobStore on top of pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgresStore wraps pool. Timestamps read back are converted to loc.
func NewPostgresStore(pool *pgxpool.Pool, loc *time.Location) *PostgresStore {
	return &PostgresStore{pool: pool, loc: loc}
}

// EnsureSchema creates the accepted_jobs table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, acceptedJobsSchema); err != nil {
		return fmt.Errorf("ensure accepted_jobs schema: %w", err)
	}
	return nil
}

// Exists reports whether jobID has been accepted.
func (s *PostgresStore) Exists(ctx context.Context, jobID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accepted_jobs WHERE job_id = $1)`,
		jobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return exists, nil
}

// Insert writes one row; a conflicting job_id yields ErrDuplicate.
func (s *PostgresStore) Insert(ctx context.Context, job model.AcceptedJob) error {
	acceptedAt := job.AcceptedAt
	if acceptedAt.IsZero() {
		acceptedAt = time.Now()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO accepted_jobs
		   (job_id, title, description, location, date_posted, scheduled_at, duration_minutes, accepted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (job_id) DO NOTHING`,
		job.JobID, job.Title, job.Description, job.Location, job.DatePosted,
		job.ScheduledAt, int(job.Duration/time.Minute), acceptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert accepted job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// CountScheduledBetween counts rows in [from, to).
func (s *PostgresStore) CountScheduledBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accepted_jobs
		 WHERE scheduled_at >= $1 AND scheduled_at < $2`,
		from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// ListScheduledBetween returns rows in [from, to), earliest first.
func (s *PostgresStore) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]model.AcceptedJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, title, description, location, date_posted,
		        scheduled_at, duration_minutes, accepted_at
		 FROM accepted_jobs
		 WHERE scheduled_at >= $1 AND scheduled_at < $2
		 ORDER BY scheduled_at, job_id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]model.AcceptedJob, 0)
	for rows.Next() {
		var (
			j       model.AcceptedJob
			minutes int
		)
		if err := rows.Scan(
			&j.JobID, &j.Title, &j.Description, &j.Location, &j.DatePosted,
			&j.ScheduledAt, &minutes, &j.AcceptedAt,
		); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		j.Duration = time.Duration(minutes) * time.Minute
		if s.loc != nil {
			j.ScheduledAt = j.ScheduledAt.In(s.loc)
			j.AcceptedAt = j.AcceptedAt.In(s.loc)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
