package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobmate/acceptance-service/internal/model"
)

// MemoryStore keeps accepted jobs in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]model.AcceptedJob
}

// NewMemoryStore constructs an empty store, optionally seeded with rows.
func NewMemoryStore(seed ...model.AcceptedJob) *MemoryStore {
	s := &MemoryStore{rows: make(map[string]model.AcceptedJob, len(seed))}
	for _, r := range seed {
		s.rows[r.JobID] = r
	}
	return s
}

// Exists reports whether jobID has been accepted.
func (s *MemoryStore) Exists(_ context.Context, jobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[jobID]
	return ok, nil
}

// Insert adds a row, returning ErrDuplicate for a known job ID.
func (s *MemoryStore) Insert(_ context.Context, job model.AcceptedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[job.JobID]; ok {
		return ErrDuplicate
	}
	s.rows[job.JobID] = job
	return nil
}

// CountScheduledBetween counts rows in [from, to).
func (s *MemoryStore) CountScheduledBetween(_ context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rows {
		if inRange(r.ScheduledAt, from, to) {
			n++
		}
	}
	return n, nil
}

// ListScheduledBetween returns rows in [from, to), earliest first.
func (s *MemoryStore) ListScheduledBetween(_ context.Context, from, to time.Time) ([]model.AcceptedJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AcceptedJob, 0)
	for _, r := range s.rows {
		if inRange(r.ScheduledAt, from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].JobID < out[j].JobID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
