// Package source delivers newly discovered jobs to the acceptance pass.
package source

import (
	"errors"
	"fmt"
	"strings"

	"jobmate/acceptance-service/internal/model"
)

var errMissingID = errors.New("job has no id")

// normalize trims identifiers and rejects jobs the pass cannot track or
// would score on impossible values.
func normalize(j model.Job) (model.Job, error) {
	j.ID = strings.TrimSpace(j.ID)
	if j.ID == "" {
		return j, errMissingID
	}
	if j.DistanceKm < 0 || j.HourlyRate < 0 {
		return j, fmt.Errorf("job %s: negative distance %.1f or rate %.2f", j.ID, j.DistanceKm, j.HourlyRate)
	}
	j.AcceptToken = strings.TrimSpace(j.AcceptToken)
	return j, nil
}
