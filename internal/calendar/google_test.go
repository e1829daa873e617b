package calendar_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"jobmate/acceptance-service/internal/calendar"
	"jobmate/acceptance-service/internal/model"
)

func amsterdam(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newGoogle(t *testing.T, h http.HandlerFunc) *calendar.GoogleCalendar {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return calendar.NewGoogleCalendarFromService(svc, "primary", amsterdam(t), zerolog.Nop())
}

func writeEvents(w http.ResponseWriter, items ...map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func timed(start, end time.Time) map[string]any {
	return map[string]any{
		"id":    "ev-" + start.Format("1504"),
		"start": map[string]string{"dateTime": start.Format(time.RFC3339)},
		"end":   map[string]string{"dateTime": end.Format(time.RFC3339)},
	}
}

func TestGoogleCalendar_FreeWindow(t *testing.T) {
	loc := amsterdam(t)
	start := time.Date(2025, 3, 25, 21, 0, 0, 0, loc)

	var gotMin, gotMax string
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/calendars/primary/events" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotMin, gotMax = r.URL.Query().Get("timeMin"), r.URL.Query().Get("timeMax")
		writeEvents(w)
	})

	avail, err := g.CheckAvailability(context.Background(), start, 3*time.Hour)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !avail.Available || avail.Suggested != nil {
		t.Errorf("avail = %+v, want free", avail)
	}
	if gotMin != "2025-03-25T21:00:00+01:00" || gotMax != "2025-03-26T00:00:00+01:00" {
		t.Errorf("window = %s..%s", gotMin, gotMax)
	}
}

func TestGoogleCalendar_TransparentEventsAreFree(t *testing.T) {
	loc := amsterdam(t)
	start := time.Date(2025, 3, 25, 21, 0, 0, 0, loc)
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		ev := timed(start, start.Add(time.Hour))
		ev["transparency"] = "transparent"
		writeEvents(w, ev)
	})

	avail, err := g.CheckAvailability(context.Background(), start, time.Hour)
	if err != nil || !avail.Available {
		t.Errorf("CheckAvailability = %+v, %v; want free", avail, err)
	}
}

func TestGoogleCalendar_BusyWindowSuggestsNextStart(t *testing.T) {
	loc := amsterdam(t)
	start := time.Date(2025, 3, 25, 18, 0, 0, 0, loc)
	end := start.Add(2 * time.Hour)

	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		from, _ := time.Parse(time.RFC3339, r.URL.Query().Get("timeMin"))
		switch {
		case from.Equal(start):
			writeEvents(w, timed(start.Add(30*time.Minute), start.Add(time.Hour)))
		case from.Equal(end):
			// 20:00-21:00 is too short for two hours, 21:00-22:00 is taken.
			writeEvents(w, timed(end.Add(time.Hour), end.Add(2*time.Hour)))
		default:
			t.Errorf("unexpected timeMin %s", from)
			writeEvents(w)
		}
	})

	avail, err := g.CheckAvailability(context.Background(), start, 2*time.Hour)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if avail.Available {
		t.Fatal("window should be busy")
	}
	want := end.Add(2 * time.Hour)
	if avail.Suggested == nil || !avail.Suggested.Equal(want) {
		t.Errorf("suggested = %v, want %v", avail.Suggested, want)
	}
}

func TestGoogleCalendar_ListErrorIsReturned(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"backend"}}`, http.StatusInternalServerError)
	})
	if _, err := g.CheckAvailability(context.Background(), time.Now(), time.Hour); err == nil {
		t.Error("expected an error from a failing calendar API")
	}
}

func TestGoogleCalendar_CreateEventSetsRemindersAndZone(t *testing.T) {
	loc := amsterdam(t)
	start := time.Date(2025, 3, 25, 21, 0, 0, 0, loc)

	var got gcal.Event
	var raw map[string]any
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calendars/primary/events" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.Unmarshal(body, &got)
		_ = json.Unmarshal(body, &raw)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "created-1", "htmlLink": "https://calendar.example/e/1"})
	})

	err := g.CreateEvent(context.Background(), model.CalendarEvent{
		Summary:     "MrFix: Kitchen wiring",
		Location:    "Amsterdam",
		Description: "Replace two sockets",
		Start:       start.UTC(),
		End:         start.Add(2 * time.Hour).UTC(),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if got.Summary != "MrFix: Kitchen wiring" || got.Location != "Amsterdam" {
		t.Errorf("event = %+v", got)
	}
	if got.Start == nil || got.Start.DateTime != "2025-03-25T21:00:00+01:00" || got.Start.TimeZone != "Europe/Amsterdam" {
		t.Errorf("start = %+v", got.Start)
	}
	if got.End == nil || got.End.DateTime != "2025-03-25T23:00:00+01:00" {
		t.Errorf("end = %+v", got.End)
	}
	if got.Reminders == nil || len(got.Reminders.Overrides) != 2 {
		t.Fatalf("reminders = %+v", got.Reminders)
	}
	if o := got.Reminders.Overrides[0]; o.Method != "popup" || o.Minutes != 30 {
		t.Errorf("first reminder = %+v", o)
	}
	if o := got.Reminders.Overrides[1]; o.Method != "email" || o.Minutes != 60 {
		t.Errorf("second reminder = %+v", o)
	}
	reminders, _ := raw["reminders"].(map[string]any)
	if v, ok := reminders["useDefault"]; !ok || v != false {
		t.Errorf("useDefault must be sent explicitly as false, got %v", reminders)
	}
}
