// Package evaluation ranks and pre-filters jobs. Everything here is a pure
// function of (job, preferences) so a pass is reproducible.
package evaluation

import (
	"sort"

	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
)

const (
	rateBaseBonus     = 5.0
	rateSurplusFactor = 10.0 // one point per 10 above the minimum
	distancePenalty   = 2.0  // half a point per km
)

// Score computes the priority of a job. Higher is better.
func Score(job model.Job, p preferences.Preferences) float64 {
	var score float64

	for _, c := range job.CategorySet() {
		score += p.CategoryBonus(c)
	}

	if job.HourlyRate >= p.MinHourlyRate {
		score += rateBaseBonus + (job.HourlyRate-p.MinHourlyRate)/rateSurplusFactor
	}

	if job.Urgent && p.PreferUrgent {
		score += p.UrgencyBonus
	}

	if job.DistanceKm == 0 && p.PreferHomeBase {
		score += p.HomeBaseBonus
	} else {
		score -= job.DistanceKm / distancePenalty
	}

	return score
}

// Ranked pairs a job with its score and original batch position.
type Ranked struct {
	Job      model.Job
	Score    float64
	Position int
}

// Rank scores every job and orders them by descending score. Equal scores
// keep their input order.
func Rank(jobs []model.Job, p preferences.Preferences) []Ranked {
	out := make([]Ranked, len(jobs))
	for i, j := range jobs {
		out[i] = Ranked{Job: j, Score: Score(j, p), Position: i}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}
