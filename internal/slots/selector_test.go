package slots_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/golang/mock/gomock"

	"jobmate/acceptance-service/internal/mocks"
	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
	"jobmate/acceptance-service/internal/slots"
	"jobmate/acceptance-service/internal/store"
)

type fixture struct {
	loc      *time.Location
	calendar *mocks.MockCalendar
	store    *store.MemoryStore
	selector *slots.Selector
	prefs    preferences.Preferences
}

func newFixture(t *testing.T, opts ...slots.Option) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &fixture{
		loc:      loc,
		calendar: mocks.NewMockCalendar(ctrl),
		store:    store.NewMemoryStore(),
		prefs:    preferences.Defaults(),
	}
	now := time.Date(2025, 3, 24, 12, 0, 0, 0, loc)
	all := append([]slots.Option{slots.WithClock(func() time.Time { return now })}, opts...)
	f.selector = slots.NewSelector(f.calendar, store.NewLedger(f.store, loc), loc, all...)
	return f
}

func (f *fixture) at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, f.loc)
}

func (f *fixture) book(t *testing.T, id string, at time.Time) {
	t.Helper()
	if err := f.store.Insert(context.Background(), model.AcceptedJob{JobID: id, ScheduledAt: at, Duration: 2 * time.Hour}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

type instantMatcher struct{ t time.Time }

func instant(t time.Time) gomock.Matcher { return instantMatcher{t} }

func (m instantMatcher) Matches(x interface{}) bool {
	v, ok := x.(time.Time)
	return ok && v.Equal(m.t)
}

func (m instantMatcher) String() string { return "is the instant " + m.t.String() }

func electricalJob(slotStrings ...string) model.Job {
	return model.Job{
		ID:          "electrical-1",
		Title:       "Kitchen wiring",
		Categories:  []string{"electrical"},
		HourlyRate:  90,
		Timeslots:   slotStrings,
		AcceptToken: "https://platform.example/accept/456",
	}
}

func TestSelect_EarliestAvailableSlotUnderCap(t *testing.T) {
	f := newFixture(t)
	job := electricalJob("2025-03-25 21:00", "2025-03-25 22:00")

	f.calendar.EXPECT().
		CheckAvailability(gomock.Any(), instant(f.at(25, 21)), 3*time.Hour).
		Return(model.Availability{Available: true}, nil)

	sel, ok, err := f.selector.Select(context.Background(), job, f.prefs)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !ok {
		t.Fatal("Select returned not-ok, want a slot")
	}
	if !sel.At().Equal(f.at(25, 21)) {
		t.Errorf("chosen = %v, want 2025-03-25 21:00", sel.At())
	}
	if sel.Duration != 2*time.Hour {
		t.Errorf("duration = %v, want 2h", sel.Duration)
	}
	if !sel.End().Equal(f.at(25, 23)) {
		t.Errorf("end = %v, want 23:00", sel.End())
	}
}

func TestSelect_DayAtCapReturnsNotOK(t *testing.T) {
	f := newFixture(t)
	f.book(t, "existing-1", f.at(25, 9))
	f.book(t, "existing-2", f.at(25, 13))

	// No calendar expectations: a full day must not reach the calendar.
	_, ok, err := f.selector.Select(context.Background(), electricalJob("2025-03-25 21:00", "2025-03-25 22:00"), f.prefs)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok {
		t.Error("Select should return not-ok when Tuesday's cap of 2 is reached")
	}
}

func TestSelect_FullDaySkipsToNextDay(t *testing.T) {
	f := newFixture(t)
	f.book(t, "existing-1", f.at(25, 9))
	f.book(t, "existing-2", f.at(25, 13))

	f.calendar.EXPECT().
		CheckAvailability(gomock.Any(), instant(f.at(26, 20)), gomock.Any()).
		Return(model.Availability{Available: true}, nil)

	sel, ok, err := f.selector.Select(context.Background(), electricalJob("2025-03-25 21:00", "26-03-2025 20:00"), f.prefs)
	if err != nil || !ok {
		t.Fatalf("Select = ok:%v err:%v, want a slot", ok, err)
	}
	if !sel.At().Equal(f.at(26, 20)) {
		t.Errorf("chosen = %v, want 2025-03-26 20:00", sel.At())
	}
}

func TestSelect_BusyOrFailingCalendarMovesOn(t *testing.T) {
	f := newFixture(t)
	suggested := f.at(25, 23)

	gomock.InOrder(
		f.calendar.EXPECT().CheckAvailability(gomock.Any(), instant(f.at(25, 18)), gomock.Any()).
			Return(model.Availability{Available: false, Suggested: &suggested}, nil),
		f.calendar.EXPECT().CheckAvailability(gomock.Any(), instant(f.at(25, 19)), gomock.Any()).
			Return(model.Availability{}, errors.New("calendar service down")),
		f.calendar.EXPECT().CheckAvailability(gomock.Any(), instant(f.at(25, 20)), gomock.Any()).
			Return(model.Availability{Available: true}, nil),
	)

	sel, ok, err := f.selector.Select(context.Background(),
		electricalJob("2025-03-25 18:00", "2025-03-25 19:00", "2025-03-25 20:00"), f.prefs)
	if err != nil || !ok {
		t.Fatalf("Select = ok:%v err:%v, want a slot", ok, err)
	}
	if !sel.At().Equal(f.at(25, 20)) {
		t.Errorf("chosen = %v, want 20:00", sel.At())
	}
}

func TestSelect_SkipsPastAndUnparseableAndSortsChronologically(t *testing.T) {
	f := newFixture(t)
	f.calendar.EXPECT().
		CheckAvailability(gomock.Any(), instant(f.at(26, 8)), gomock.Any()).
		Return(model.Availability{Available: true}, nil)

	job := electricalJob(
		"2025-03-27 10:00",
		"whenever suits",
		"2025-03-20 10:00", // past
		"2025-03-24 12:00", // exactly now
		"26/03/2025 08:00",
	)
	sel, ok, err := f.selector.Select(context.Background(), job, f.prefs)
	if err != nil || !ok {
		t.Fatalf("Select = ok:%v err:%v, want a slot", ok, err)
	}
	if !sel.At().Equal(f.at(26, 8)) {
		t.Errorf("chosen = %v, want 2025-03-26 08:00", sel.At())
	}
	if sel.Candidate.Raw != "26/03/2025 08:00" {
		t.Errorf("raw = %q", sel.Candidate.Raw)
	}
}

func TestSelect_NoUsableSlots(t *testing.T) {
	f := newFixture(t)
	cases := [][]string{
		nil,
		{"not a date"},
		{"2024-01-01 10:00"},
	}
	for _, raws := range cases {
		_, ok, err := f.selector.Select(context.Background(), electricalJob(raws...), f.prefs)
		if err != nil {
			t.Errorf("Select(%v) error: %v", raws, err)
		}
		if ok {
			t.Errorf("Select(%v) ok = true, want false", raws)
		}
	}
}

func TestSelect_ZeroCapBlocksDay(t *testing.T) {
	f := newFixture(t)
	f.prefs.DailyCaps[int(time.Tuesday)] = 0
	_, ok, err := f.selector.Select(context.Background(), electricalJob("2025-03-25 21:00"), f.prefs)
	if err != nil || ok {
		t.Errorf("Select = ok:%v err:%v, want not-ok with cap 0", ok, err)
	}
}

func TestSelect_CustomEstimatorWidensWindow(t *testing.T) {
	f := newFixture(t, slots.WithEstimator(func(job model.Job, _ preferences.Preferences) time.Duration {
		if slices.Contains(job.CategorySet(), "electrical") {
			return 4 * time.Hour
		}
		return time.Hour
	}))
	f.prefs.TravelBufferMinutes = 30

	f.calendar.EXPECT().
		CheckAvailability(gomock.Any(), instant(f.at(25, 21)), 4*time.Hour+30*time.Minute).
		Return(model.Availability{Available: true}, nil)

	sel, ok, err := f.selector.Select(context.Background(), electricalJob("2025-03-25 21:00"), f.prefs)
	if err != nil || !ok {
		t.Fatalf("Select = ok:%v err:%v", ok, err)
	}
	if sel.Duration != 4*time.Hour {
		t.Errorf("duration = %v, want 4h", sel.Duration)
	}
}

func TestSelect_CallTimeoutIsApplied(t *testing.T) {
	f := newFixture(t, slots.WithCallTimeout(50*time.Millisecond))
	f.calendar.EXPECT().
		CheckAvailability(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ time.Time, _ time.Duration) (model.Availability, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				t.Error("availability call has no deadline")
			} else if time.Until(deadline) > 50*time.Millisecond {
				t.Errorf("deadline too far: %v", time.Until(deadline))
			}
			return model.Availability{Available: true}, nil
		})

	if _, ok, err := f.selector.Select(context.Background(), electricalJob("2025-03-25 21:00"), f.prefs); err != nil || !ok {
		t.Fatalf("Select = ok:%v err:%v", ok, err)
	}
}

type brokenLedger struct{}

func (brokenLedger) CountOnDate(context.Context, time.Time) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSelect_LedgerFailureIsAnError(t *testing.T) {
	loc := time.UTC
	ctrl := gomock.NewController(t)
	cal := mocks.NewMockCalendar(ctrl)
	now := time.Date(2025, 3, 24, 12, 0, 0, 0, loc)
	sel := slots.NewSelector(cal, brokenLedger{}, loc, slots.WithClock(func() time.Time { return now }))

	_, ok, err := sel.Select(context.Background(), electricalJob("2025-03-25 21:00"), preferences.Defaults())
	if !errors.Is(err, slots.ErrLedgerUnavailable) {
		t.Fatalf("error = %v, want ErrLedgerUnavailable", err)
	}
	if ok {
		t.Error("ok should be false on ledger failure")
	}
}
