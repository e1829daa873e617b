package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/source"
)

// ── FeedFetcher ────────────────────────────────────────────────────────────

func TestFeedFetcher_DecodesJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[
			{"id":" job-1 ","title":"Kitchen wiring","distanceKm":0,"hourlyRate":90,
			 "categories":["electrical"],"urgent":true,"timeslots":["2025-03-25 21:00"],
			 "acceptToken":"https://platform.example/accept/1"},
			{"id":"","title":"Anonymous"}
		]}`))
	}))
	defer srv.Close()

	jobs, err := source.NewFeedFetcher(srv.URL, zerolog.Nop()).FetchNewJobs(context.Background())
	if err != nil {
		t.Fatalf("FetchNewJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %+v, want one valid job", jobs)
	}
	j := jobs[0]
	if j.ID != "job-1" || j.HourlyRate != 90 || !j.Urgent || len(j.Timeslots) != 1 || len(j.CategorySet()) != 1 || j.CategorySet()[0] != "electrical" {
		t.Errorf("decoded job = %+v", j)
	}
}

func TestFeedFetcher_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := source.NewFeedFetcher(srv.URL, zerolog.Nop()).FetchNewJobs(context.Background()); err == nil {
		t.Error("expected an error for a 503 feed")
	}
}

func TestFeedFetcher_BadJSONIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	if _, err := source.NewFeedFetcher(srv.URL, zerolog.Nop()).FetchNewJobs(context.Background()); err == nil {
		t.Error("expected a decode error")
	}
}

// ── RedisQueue ─────────────────────────────────────────────────────────────

type fakeList struct {
	vals  []string
	err   error
	key   string
	count int
}

func (f *fakeList) LPopCount(ctx context.Context, key string, count int) *redis.StringSliceCmd {
	f.key, f.count = key, count
	if f.err != nil {
		return redis.NewStringSliceResult(nil, f.err)
	}
	if len(f.vals) == 0 {
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	n := min(count, len(f.vals))
	popped := f.vals[:n:n]
	f.vals = f.vals[n:]
	return redis.NewStringSliceResult(popped, nil)
}

func (f *fakeList) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		var s string
		switch v := v.(type) {
		case []byte:
			s = string(v)
		case string:
			s = v
		}
		f.vals = append([]string{s}, f.vals...)
	}
	return redis.NewIntResult(int64(len(f.vals)), nil)
}

func TestRedisQueue_PopsAndSkipsMalformed(t *testing.T) {
	list := &fakeList{vals: []string{
		`{"id":"a","title":"Assembly","categories":["assembly"],"timeslots":["2025-03-25 10:00"]}`,
		`not json`,
		`{"title":"no id"}`,
		`{"id":"b","title":"Network","hourlyRate":95}`,
		`{"id":"c","title":"Negative","distanceKm":-3}`,
		`{"id":"d","title":"Negative rate","hourlyRate":-1}`,
	}}

	jobs, err := source.NewRedisQueue(list, "jobs:discovered", 0, zerolog.Nop()).FetchNewJobs(context.Background())
	if err != nil {
		t.Fatalf("FetchNewJobs: %v", err)
	}
	if list.key != "jobs:discovered" || list.count != source.DefaultBatchSize {
		t.Errorf("LPOP %s %d", list.key, list.count)
	}
	if len(jobs) != 2 || jobs[0].ID != "a" || jobs[1].ID != "b" {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestRedisQueue_RequeuedJobsComeBackFirst(t *testing.T) {
	list := &fakeList{vals: []string{`{"id":"later","title":"Later"}`}}
	q := source.NewRedisQueue(list, "jobs:discovered", 10, zerolog.Nop())

	back := []model.Job{
		{ID: "first", Title: "First", Timeslots: []string{"2025-03-25 21:00"}},
		{ID: "second", Title: "Second", DistanceKm: 12},
	}
	if err := q.Requeue(context.Background(), back); err != nil {
		t.Fatalf("Requeue: %v", err)
	}

	jobs, err := q.FetchNewJobs(context.Background())
	if err != nil {
		t.Fatalf("FetchNewJobs: %v", err)
	}
	if len(jobs) != 3 || jobs[0].ID != "first" || jobs[1].ID != "second" || jobs[2].ID != "later" {
		t.Fatalf("jobs = %+v, want first, second, later", jobs)
	}
	if jobs[0].Timeslots[0] != "2025-03-25 21:00" || jobs[1].DistanceKm != 12 {
		t.Errorf("requeued jobs lost fields: %+v", jobs[:2])
	}
}

func TestRedisQueue_RequeueErrorIsReturned(t *testing.T) {
	down := errors.New("dial tcp: connection refused")
	q := source.NewRedisQueue(&fakeList{err: down}, "q", 10, zerolog.Nop())
	if err := q.Requeue(context.Background(), []model.Job{{ID: "a"}}); !errors.Is(err, down) {
		t.Errorf("error = %v, want wrapped %v", err, down)
	}
	if err := q.Requeue(context.Background(), nil); err != nil {
		t.Errorf("empty requeue: %v", err)
	}
}

func TestRedisQueue_EmptyListIsNotAnError(t *testing.T) {
	list := &fakeList{err: redis.Nil}
	jobs, err := source.NewRedisQueue(list, "q", 10, zerolog.Nop()).FetchNewJobs(context.Background())
	if err != nil || len(jobs) != 0 {
		t.Errorf("FetchNewJobs = %v, %v", jobs, err)
	}
	if list.count != 10 {
		t.Errorf("count = %d, want 10", list.count)
	}
}

func TestRedisQueue_ConnectionErrorIsReturned(t *testing.T) {
	down := errors.New("dial tcp: connection refused")
	_, err := source.NewRedisQueue(&fakeList{err: down}, "q", 10, zerolog.Nop()).FetchNewJobs(context.Background())
	if !errors.Is(err, down) {
		t.Errorf("error = %v, want wrapped %v", err, down)
	}
}
