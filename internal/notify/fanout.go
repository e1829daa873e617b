package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
)

// Sender delivers a one-way notice.
type Sender interface {
	Notify(ctx context.Context, title, body string) error
}

// Permitter asks the user a yes/no question about a job.
type Permitter interface {
	RequestPermission(ctx context.Context, message string, job model.Job) (bool, error)
}

// Fanout sends every notice to all channels and routes permission requests
// to a single channel. The permission question is also sent as a notice to
// the other channels so the user sees it wherever they are.
type Fanout struct {
	senders   []Sender
	permitter Permitter
	log       zerolog.Logger
}

// NewFanout builds a Fanout. permitter may also appear in senders.
func NewFanout(permitter Permitter, log zerolog.Logger, senders ...Sender) *Fanout {
	return &Fanout{senders: senders, permitter: permitter, log: log}
}

// Notify succeeds when at least one channel delivered the notice.
func (f *Fanout) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, s := range f.senders {
		if err := s.Notify(ctx, title, body); err != nil {
			f.log.Warn().Err(err).Msg("notification channel failed")
			errs = append(errs, err)
		}
	}
	if len(f.senders) > 0 && len(errs) == len(f.senders) {
		return errors.Join(errs...)
	}
	return nil
}

// RequestPermission mirrors the question to the plain channels and waits
// on the permitter for the answer.
func (f *Fanout) RequestPermission(ctx context.Context, message string, job model.Job) (bool, error) {
	for _, s := range f.senders {
		if p, ok := s.(Permitter); ok && p == f.permitter {
			continue
		}
		if err := s.Notify(ctx, "Permission requested", message); err != nil {
			f.log.Warn().Err(err).Str("job_id", job.ID).Msg("could not mirror permission request")
		}
	}
	return f.permitter.RequestPermission(ctx, message, job)
}
