// Package api implements the admin HTTP endpoints of the acceptance service.
//
// Routes:
//
//	GET  /accepted?from=YYYY-MM-DD&to=YYYY-MM-DD → accepted jobs by start date (to inclusive)
//	GET  /day-count?date=YYYY-MM-DD              → bookings, cap and room left on a date
//	GET  /preferences                            → preferences snapshot in use
//	GET  /status                                 → last pass summary
//	POST /passes                                 → start a pass now
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
	"jobmate/acceptance-service/internal/scheduler"
)

const dateLayout = "2006-01-02"

// defaultWindow is the /accepted range when no bounds are given.
const defaultWindow = 7 * 24 * time.Hour

// JobLister lists accepted jobs scheduled in [from, to).
type JobLister interface {
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]model.AcceptedJob, error)
}

// DayCounter counts bookings on a local date.
type DayCounter interface {
	CountOnDate(ctx context.Context, t time.Time) (int, error)
}

// PreferencesSource hands out the current preferences.
type PreferencesSource interface {
	Snapshot() preferences.Preferences
}

// PassControl reports on and starts passes.
type PassControl interface {
	Last() scheduler.Status
	Trigger() bool
}

// Handler holds shared dependencies.
type Handler struct {
	jobs   JobLister
	ledger DayCounter
	prefs  PreferencesSource
	passes PassControl
	loc    *time.Location
	now    func() time.Time
	log    zerolog.Logger
}

// NewHandler returns a configured Handler. passes may be nil, which
// disables /status and /passes.
func NewHandler(jobs JobLister, ledger DayCounter, prefs PreferencesSource, passes PassControl, loc *time.Location, log zerolog.Logger) *Handler {
	return &Handler{jobs: jobs, ledger: ledger, prefs: prefs, passes: passes, loc: loc, now: time.Now, log: log}
}

// RegisterRoutes mounts all admin routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/accepted", h.handleAccepted)
	mux.HandleFunc("/day-count", h.handleDayCount)
	mux.HandleFunc("/preferences", h.handlePreferences)
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/passes", h.handlePasses)
}

func (h *Handler) handleAccepted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	today := h.midnight(h.now())
	from, to := today, today.Add(defaultWindow)
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, h.loc)
		if err != nil {
			jsonError(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, h.loc)
		if err != nil {
			jsonError(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to = h.midnight(d.AddDate(0, 0, 1))
	}
	if !to.After(from) {
		jsonError(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	jobs, err := h.jobs.ListScheduledBetween(r.Context(), from, to)
	if err != nil {
		h.log.Error().Err(err).Msg("list accepted jobs failed")
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []model.AcceptedJob{}
	}
	jsonOK(w, jobs)
}

type dayCount struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	Count     int    `json:"count"`
	Cap       int    `json:"cap"`
	Remaining int    `json:"remaining"`
}

func (h *Handler) handleDayCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	day := h.midnight(h.now())
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, h.loc)
		if err != nil {
			jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = d
	}

	n, err := h.ledger.CountOnDate(r.Context(), day)
	if err != nil {
		h.log.Error().Err(err).Msg("day count failed")
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	limit := h.prefs.Snapshot().CapFor(day.Weekday())
	jsonOK(w, dayCount{
		Date:      day.Format(dateLayout),
		Weekday:   day.Weekday().String(),
		Count:     n,
		Cap:       limit,
		Remaining: max(limit-n, 0),
	})
}

func (h *Handler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, h.prefs.Snapshot())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.passes == nil {
		jsonError(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	jsonOK(w, h.passes.Last())
}

func (h *Handler) handlePasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.passes == nil {
		jsonError(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	if h.passes.Last().Running {
		jsonError(w, "a pass is already running", http.StatusConflict)
		return
	}
	go h.passes.Trigger()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

func (h *Handler) midnight(t time.Time) time.Time {
	t = t.In(h.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.loc)
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
