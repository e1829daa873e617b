// Package slots picks the committed start time for a job: the earliest
// future slot whose day is under its cap and whose window is free.
package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
	"jobmate/acceptance-service/internal/timeslot"
)

// ErrLedgerUnavailable wraps a failed day-count read. The caller should end
// the pass: without counts the cap cannot be enforced.
var ErrLedgerUnavailable = errors.New("slots: day-cap ledger unavailable")

// AvailabilityChecker is the read side of the calendar.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, start time.Time, d time.Duration) (model.Availability, error)
}

// DayCounter returns the number of accepted jobs on t's calendar date.
type DayCounter interface {
	CountOnDate(ctx context.Context, t time.Time) (int, error)
}

// DurationEstimator returns how long a job is expected to take.
type DurationEstimator func(job model.Job, p preferences.Preferences) time.Duration

// FixedDuration applies the preferences' single duration policy to every job.
func FixedDuration(_ model.Job, p preferences.Preferences) time.Duration {
	return p.JobDuration()
}

// Selection is the slot chosen for a job.
type Selection struct {
	Candidate timeslot.Candidate
	Duration  time.Duration
}

// At is the chosen start instant.
func (s Selection) At() time.Time { return s.Candidate.At }

// End is the end of the booked work, excluding the travel buffer.
func (s Selection) End() time.Time { return s.Candidate.At.Add(s.Duration) }

// Selector evaluates a job's candidate slots in chronological order.
type Selector struct {
	calendar    AvailabilityChecker
	ledger      DayCounter
	estimate    DurationEstimator
	loc         *time.Location
	now         func() time.Time
	callTimeout time.Duration
	log         zerolog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Selector) { s.now = now } }

// WithEstimator replaces FixedDuration.
func WithEstimator(e DurationEstimator) Option { return func(s *Selector) { s.estimate = e } }

// WithCallTimeout bounds each availability query.
func WithCallTimeout(d time.Duration) Option { return func(s *Selector) { s.callTimeout = d } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Selector) { s.log = l } }

// NewSelector builds a selector parsing slots in loc.
func NewSelector(calendar AvailabilityChecker, ledger DayCounter, loc *time.Location, opts ...Option) *Selector {
	s := &Selector{
		calendar:    calendar,
		ledger:      ledger,
		estimate:    FixedDuration,
		loc:         loc,
		now:         time.Now,
		callTimeout: 15 * time.Second,
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select returns the earliest feasible slot for job. ok is false when no
// candidate survives; the job stays eligible for a later pass. A non-nil
// error means the ledger could not be read.
func (s *Selector) Select(ctx context.Context, job model.Job, p preferences.Preferences) (Selection, bool, error) {
	log := s.log.With().Str("job_id", job.ID).Logger()

	candidates, rejected := timeslot.ParseAll(job.ID, job.Timeslots, s.loc)
	for _, r := range rejected {
		log.Warn().Str("slot", r.Raw).Err(r.Err).Msg("skipping unparseable timeslot")
	}

	duration := s.estimate(job, p)
	window := duration + p.TravelBuffer()
	now := s.now()

	for _, c := range candidates {
		if !c.At.After(now) {
			log.Debug().Str("slot", c.Raw).Msg("slot is in the past")
			continue
		}

		count, err := s.ledger.CountOnDate(ctx, c.At)
		if err != nil {
			return Selection{}, false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		if limit := p.CapFor(c.At.Weekday()); count >= limit {
			log.Info().Str("slot", c.Raw).Int("booked", count).Int("cap", limit).
				Msg("day cap reached, trying next slot")
			continue
		}

		avail, err := s.checkAvailability(ctx, c.At, window)
		if err != nil {
			log.Warn().Str("slot", c.Raw).Err(err).Msg("calendar check failed, treating slot as busy")
			continue
		}
		if !avail.Available {
			ev := log.Info().Str("slot", c.Raw)
			if avail.Suggested != nil {
				ev = ev.Time("suggested", *avail.Suggested)
			}
			ev.Msg("calendar busy for slot")
			continue
		}

		return Selection{Candidate: c, Duration: duration}, true, nil
	}
	return Selection{}, false, nil
}

func (s *Selector) checkAvailability(ctx context.Context, start time.Time, window time.Duration) (model.Availability, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.calendar.CheckAvailability(callCtx, start, window)
}
