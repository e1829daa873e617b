package acceptance

import (
	"context"
	"time"

	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
	"jobmate/acceptance-service/internal/slots"
)

//go:generate mockgen -destination=../mocks/mock_collaborators.go -package=mocks jobmate/acceptance-service/internal/acceptance JobSource,Calendar,Confirmer,Notifier,EventPublisher

// JobSource delivers the jobs discovered since the previous pass. An error
// ends the pass before any job is processed.
type JobSource interface {
	FetchNewJobs(ctx context.Context) ([]model.Job, error)
}

// Requeuer is implemented by sources that can take jobs back. A pass that
// stops early hands its unfinished jobs to it.
type Requeuer interface {
	Requeue(ctx context.Context, jobs []model.Job) error
}

// Calendar answers availability queries and records bookings.
type Calendar interface {
	CheckAvailability(ctx context.Context, start time.Time, d time.Duration) (model.Availability, error)
	CreateEvent(ctx context.Context, ev model.CalendarEvent) error
}

// Confirmer exchanges a job's accept token for a confirmed booking on the
// platform.
type Confirmer interface {
	Confirm(ctx context.Context, token string, at time.Time) error
}

// Notifier reaches the user. Notify is best-effort; RequestPermission
// blocks until the user answers or the notifier's own timeout applies.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
	RequestPermission(ctx context.Context, message string, job model.Job) (bool, error)
}

// EventPublisher announces committed jobs to other services.
type EventPublisher interface {
	PublishAccepted(ctx context.Context, job model.AcceptedJob) error
}

// Store is the part of the accepted-job store the orchestrator writes to.
type Store interface {
	Exists(ctx context.Context, jobID string) (bool, error)
	Insert(ctx context.Context, job model.AcceptedJob) error
}

// SlotSelector picks a start time for an eligible job.
type SlotSelector interface {
	Select(ctx context.Context, job model.Job, p preferences.Preferences) (slots.Selection, bool, error)
}

// PreferencesSource hands out one snapshot per pass.
type PreferencesSource interface {
	Snapshot() preferences.Preferences
}
