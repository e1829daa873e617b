// Package calendar implements the availability and booking side of the
// acceptance flow, backed by Google Calendar or a local PostgreSQL table.
package calendar

import (
	"sort"
	"time"
)

// SearchHorizon bounds how far ahead a suggested start is looked for.
const SearchHorizon = 7 * 24 * time.Hour

// Interval is a busy period [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, start+d) intersects the interval.
func (iv Interval) Overlaps(start time.Time, d time.Duration) bool {
	return iv.Start.Before(start.Add(d)) && iv.End.After(start)
}

// NextFree returns the first instant at or after from where a window of
// length d fits between the busy intervals.
func NextFree(from time.Time, d time.Duration, busy []Interval) time.Time {
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	cur := from
	for _, iv := range sorted {
		if !iv.End.After(cur) {
			continue
		}
		if iv.Start.Sub(cur) >= d {
			return cur
		}
		cur = iv.End
	}
	return cur
}
