package store

import (
	"context"
	"fmt"
	"time"
)

// Ledger answers "how many jobs are already booked on this date" from the
// store. It holds no counters of its own, so a commit made earlier in the
// same pass is visible to the next query.
type Ledger struct {
	store AcceptedJobStore
	loc   *time.Location
}

// NewLedger builds a ledger whose calendar dates are taken in loc.
func NewLedger(s AcceptedJobStore, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{store: s, loc: loc}
}

// CountOnDate counts accepted jobs scheduled on the local date of t,
// ignoring time of day.
func (l *Ledger) CountOnDate(ctx context.Context, t time.Time) (int, error) {
	from, to := l.DayBounds(t)
	n, err := l.store.CountScheduledBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("ledger: count %s: %w", from.Format(time.DateOnly), err)
	}
	return n, nil
}

// DayBounds returns [midnight, next midnight) of t's local date.
func (l *Ledger) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(l.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, l.loc)
	return from, from.AddDate(0, 0, 1)
}
