// Package model defines shared data structures for the acceptance service.
package model

import (
	"strings"
	"time"
)

// Job is one posting delivered by the ingestion side for a single pass.
// It is never mutated after decoding.
type Job struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	DistanceKm  float64  `json:"distanceKm"`
	HourlyRate  float64  `json:"hourlyRate"`
	Categories  []string `json:"categories"`
	Urgent      bool     `json:"urgent"`
	Timeslots   []string `json:"timeslots"`
	AcceptToken string   `json:"acceptToken"`
	DatePosted  string   `json:"datePosted,omitempty"`
}

// CategorySet returns the job's tags lower-cased and deduplicated, in
// first-seen order.
func (j Job) CategorySet() []string {
	seen := make(map[string]struct{}, len(j.Categories))
	out := make([]string, 0, len(j.Categories))
	for _, c := range j.Categories {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// AcceptedJob mirrors a row of the accepted_jobs table.
type AcceptedJob struct {
	JobID       string        `json:"jobId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	DatePosted  string        `json:"datePosted,omitempty"`
	ScheduledAt time.Time     `json:"scheduledAt"`
	Duration    time.Duration `json:"duration"`
	AcceptedAt  time.Time     `json:"acceptedAt"`
}

// Availability is the calendar's answer for one window.
// Suggested is set when the calendar could compute a later free start.
type Availability struct {
	Available bool
	Suggested *time.Time
}

// CalendarEvent is the booking written to the calendar on commit.
type CalendarEvent struct {
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}
