package evaluation

import (
	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
)

// Reason values explain why Eligible let a job through.
const (
	ReasonPreferredCategory = "preferred category"
	ReasonRate              = "rate meets minimum"
	ReasonUrgent            = "urgent"
)

// Eligible reports whether a job has at least one positive signal: a
// preferred category, a rate at or above the minimum, or urgency when
// urgent jobs are preferred. The first matching signal is returned as the
// reason. It runs before any calendar lookup.
func Eligible(job model.Job, p preferences.Preferences) (string, bool) {
	for _, c := range job.CategorySet() {
		if p.CategoryBonus(c) > 0 {
			return ReasonPreferredCategory, true
		}
	}
	if job.HourlyRate >= p.MinHourlyRate {
		return ReasonRate, true
	}
	if job.Urgent && p.PreferUrgent {
		return ReasonUrgent, true
	}
	return "", false
}

// NeedsPermission reports whether the job is farther from the home base
// than the user accepts without being asked.
func NeedsPermission(job model.Job, p preferences.Preferences) bool {
	return job.DistanceKm > p.MaxDistanceWithoutPermission
}
