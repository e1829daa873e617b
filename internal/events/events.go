// Package events announces accepted jobs to the rest of the platform.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"jobmate/acceptance-service/internal/model"
)

// TypeJobAccepted is both the event type and the Redis channel name.
const TypeJobAccepted = "EVENT_JOB_ACCEPTED"

// JobAccepted is the payload published for every committed job.
type JobAccepted struct {
	Type            string    `json:"type"`
	JobID           string    `json:"jobId"`
	Title           string    `json:"title"`
	Location        string    `json:"location"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
	AcceptedAt      time.Time `json:"acceptedAt"`
}

// NewJobAccepted builds the payload for job.
func NewJobAccepted(job model.AcceptedJob) JobAccepted {
	return JobAccepted{
		Type:            TypeJobAccepted,
		JobID:           job.JobID,
		Title:           job.Title,
		Location:        job.Location,
		ScheduledAt:     job.ScheduledAt.UTC(),
		DurationMinutes: int(job.Duration / time.Minute),
		AcceptedAt:      job.AcceptedAt.UTC(),
	}
}

func encode(job model.AcceptedJob) ([]byte, error) {
	return json.Marshal(NewJobAccepted(job))
}

// Publisher is implemented by every sink in this package.
type Publisher interface {
	PublishAccepted(ctx context.Context, job model.AcceptedJob) error
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

// PublishAccepted tries every sink even when one fails.
func (m Multi) PublishAccepted(ctx context.Context, job model.AcceptedJob) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishAccepted(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
