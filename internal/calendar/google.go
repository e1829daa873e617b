package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"jobmate/acceptance-service/internal/model"
)

// Reminders set on every booked event, in minutes before start.
const (
	popupReminderMinutes = 30
	emailReminderMinutes = 60
)

// GoogleCalendar checks and books against a Google calendar.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	log        zerolog.Logger
}

// NewGoogleCalendar authenticates with a service-account or OAuth
// credentials file. Extra options are appended after the credentials.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID string, loc *time.Location, log zerolog.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	all := append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	}, opts...)
	svc, err := gcal.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("google calendar service: %w", err)
	}
	return NewGoogleCalendarFromService(svc, calendarID, loc, log), nil
}

// NewGoogleCalendarFromService wraps an existing service.
func NewGoogleCalendarFromService(svc *gcal.Service, calendarID string, loc *time.Location, log zerolog.Logger) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, loc: loc, log: log}
}

// CheckAvailability reports whether [start, start+d) is free. When it is
// not, Suggested holds the next free start within SearchHorizon.
func (g *GoogleCalendar) CheckAvailability(ctx context.Context, start time.Time, d time.Duration) (model.Availability, error) {
	end := start.Add(d)
	busy, err := g.busyBetween(ctx, start, end)
	if err != nil {
		return model.Availability{}, err
	}
	if len(busy) == 0 {
		return model.Availability{Available: true}, nil
	}

	ahead, err := g.busyBetween(ctx, end, end.Add(SearchHorizon))
	if err != nil {
		g.log.Debug().Err(err).Msg("could not compute suggested start")
		return model.Availability{Available: false}, nil
	}
	next := NextFree(end, d, ahead)
	return model.Availability{Available: false, Suggested: &next}, nil
}

// CreateEvent books ev with popup and email reminders.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev model.CalendarEvent) error {
	tz := g.loc.String()
	event := &gcal.Event{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.In(g.loc).Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: ev.End.In(g.loc).Format(time.RFC3339), TimeZone: tz},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: popupReminderMinutes},
				{Method: "email", Minutes: emailReminderMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	g.log.Info().Str("event_id", created.Id).Str("link", created.HtmlLink).Msg("calendar event created")
	return nil
}

// busyBetween lists the opaque events overlapping [from, to).
func (g *GoogleCalendar) busyBetween(ctx context.Context, from, to time.Time) ([]Interval, error) {
	var out []Interval
	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Transparency == "transparent" || item.Status == "cancelled" {
				continue
			}
			iv, ok := g.interval(item)
			if !ok {
				g.log.Debug().Str("event_id", item.Id).Msg("skipping event without usable times")
				continue
			}
			out = append(out, iv)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return out, nil
}

// interval converts timed and all-day events. All-day end dates are
// exclusive.
func (g *GoogleCalendar) interval(ev *gcal.Event) (Interval, bool) {
	if ev.Start == nil || ev.End == nil {
		return Interval{}, false
	}
	start, ok := g.parseEventTime(ev.Start)
	if !ok {
		return Interval{}, false
	}
	end, ok := g.parseEventTime(ev.End)
	if !ok {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func (g *GoogleCalendar) parseEventTime(dt *gcal.EventDateTime) (time.Time, bool) {
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, err == nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, g.loc)
		return t, err == nil
	}
	return time.Time{}, false
}
