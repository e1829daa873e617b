package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/acceptance-service/internal/model"
)

const calendarEventsSchema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id          BIGSERIAL PRIMARY KEY,
	summary     TEXT        NOT NULL,
	location    TEXT        NOT NULL DEFAULT '',
	description TEXT        NOT NULL DEFAULT '',
	starts_at   TIMESTAMPTZ NOT NULL,
	ends_at     TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (ends_at > starts_at)
);
CREATE INDEX IF NOT EXISTS calendar_events_range_idx ON calendar_events (starts_at, ends_at);`

// PostgresCalendar keeps bookings in a local table. It is used when no
// Google credentials are configured.
type PostgresCalendar struct {
	pool *pgxpool.Pool
}

// NewPostgresCalendar wraps pool.
func NewPostgresCalendar(pool *pgxpool.Pool) *PostgresCalendar {
	return &PostgresCalendar{pool: pool}
}

// EnsureSchema creates the calendar_events table if needed.
func (c *PostgresCalendar) EnsureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, calendarEventsSchema); err != nil {
		return fmt.Errorf("ensure calendar_events schema: %w", err)
	}
	return nil
}

// CheckAvailability reports whether no stored event overlaps
// [start, start+d).
func (c *PostgresCalendar) CheckAvailability(ctx context.Context, start time.Time, d time.Duration) (model.Availability, error) {
	end := start.Add(d)

	var busy bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM calendar_events
			WHERE starts_at < $2 AND ends_at > $1
		)`,
		start, end,
	).Scan(&busy)
	if err != nil {
		return model.Availability{}, fmt.Errorf("overlap query: %w", err)
	}
	if !busy {
		return model.Availability{Available: true}, nil
	}

	ahead, err := c.intervals(ctx, end, end.Add(SearchHorizon))
	if err != nil {
		return model.Availability{Available: false}, nil
	}
	next := NextFree(end, d, ahead)
	return model.Availability{Available: false, Suggested: &next}, nil
}

// CreateEvent stores ev.
func (c *PostgresCalendar) CreateEvent(ctx context.Context, ev model.CalendarEvent) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO calendar_events (summary, location, description, starts_at, ends_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.Summary, ev.Location, ev.Description, ev.Start, ev.End,
	)
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	return nil
}

func (c *PostgresCalendar) intervals(ctx context.Context, from, to time.Time) ([]Interval, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT starts_at, ends_at FROM calendar_events
		 WHERE starts_at < $2 AND ends_at > $1
		 ORDER BY starts_at`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var out []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}
