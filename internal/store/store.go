// Package store persists accepted jobs, the single source of truth for
// idempotency and per-day counts.
package store

import (
	"context"
	"errors"
	"time"

	"jobmate/acceptance-service/internal/model"
)

// ErrDuplicate is returned by Insert when a row for the job ID already exists.
var ErrDuplicate = errors.New("store: job already accepted")

// AcceptedJobStore is the narrow persistence surface used by the engine.
// Implementations serialize writes; a single writer is assumed.
type AcceptedJobStore interface {
	Exists(ctx context.Context, jobID string) (bool, error)
	Insert(ctx context.Context, job model.AcceptedJob) error
	// CountScheduledBetween counts rows with from <= scheduled_at < to.
	CountScheduledBetween(ctx context.Context, from, to time.Time) (int, error)
	// ListScheduledBetween returns rows with from <= scheduled_at < to,
	// earliest first.
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]model.AcceptedJob, error)
}
