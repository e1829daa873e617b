// Package timeslot turns the platform's free-form slot strings into instants.
package timeslot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnrecognized is returned when no known layout matches.
var ErrUnrecognized = errors.New("timeslot: unrecognized format")

// Layouts are tried in order; the first successful parse wins.
var Layouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02 Jan 2006 15:04",
	"2 Jan 2006 15:04",
}

// Candidate is one parsed slot of a job. It is never persisted.
type Candidate struct {
	JobID  string
	Raw    string
	At     time.Time
	Layout string
}

// String re-formats the instant with the layout it was parsed from.
func (c Candidate) String() string {
	return c.At.Format(c.Layout)
}

// Parse interprets raw in loc using the first matching layout. A match
// only counts if the instant formats back to the same text: unpadded fields
// and wall-clock times skipped by a DST change are rejected.
func Parse(raw string, loc *time.Location) (Candidate, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range Layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil && t.Format(layout) == s {
			return Candidate{Raw: raw, At: t, Layout: layout}, nil
		}
	}
	return Candidate{}, fmt.Errorf("%w: %q", ErrUnrecognized, raw)
}

// Rejected is a raw slot that could not be used, with the reason.
type Rejected struct {
	Raw string
	Err error
}

// ParseAll parses every raw slot of a job, returning the parsed candidates in
// chronological order (stable for equal instants) and the rejected strings.
func ParseAll(jobID string, raws []string, loc *time.Location) ([]Candidate, []Rejected) {
	var (
		out      = make([]Candidate, 0, len(raws))
		rejected []Rejected
	)
	for _, raw := range raws {
		c, err := Parse(raw, loc)
		if err != nil {
			rejected = append(rejected, Rejected{Raw: raw, Err: err})
			continue
		}
		c.JobID = jobID
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, rejected
}
