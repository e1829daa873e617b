// Package scheduler runs acceptance passes on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/acceptance"
)

// PassRunner runs one acceptance pass.
type PassRunner interface {
	RunPass(ctx context.Context) (acceptance.Report, error)
}

// Reloader refreshes the preferences before a pass.
type Reloader interface {
	Reload() error
}

// Status describes the most recent finished pass.
type Status struct {
	PassID     string    `json:"passId,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Booked     int       `json:"booked"`
	Processed  int       `json:"processed"`
	Error      string    `json:"error,omitempty"`
	Running    bool      `json:"running"`
}

// Scheduler wraps robfig/cron. At most one pass runs at a time; a tick that
// fires while a pass is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner PassRunner
	prefs  Reloader
	spec   string
	log    zerolog.Logger

	pass sync.Mutex // held for the duration of a pass

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
	last    Status
}

// New creates a Scheduler that fires every interval. prefs may be nil.
func New(runner PassRunner, prefs Reloader, interval time.Duration, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		runner: runner,
		prefs:  prefs,
		spec:   fmt.Sprintf("@every %s", interval),
		log:    log,
	}
}

// Start registers the job and starts the scheduler. One pass also runs
// immediately so new jobs are not held until the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, func() { s.Trigger() }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("cron started")

	go s.Trigger()
	return nil
}

// Trigger starts a pass unless one is already running or the scheduler is
// stopped. It blocks until the pass ends and reports whether it ran.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if s.stopped || s.ctx == nil {
		s.mu.Unlock()
		return false
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.pass.TryLock() {
		s.log.Info().Msg("previous pass still running, skipping tick")
		return false
	}
	defer s.pass.Unlock()

	s.setRunning(true)
	s.runPass(ctx)
	return true
}

// Stop prevents new passes, signals the running one to stop before its
// next job, and waits for it to finish its current commit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("cron stopped")
}

// Last returns the status of the most recent pass.
func (s *Scheduler) Last() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runPass(ctx context.Context) {
	if s.prefs != nil {
		if err := s.prefs.Reload(); err != nil {
			s.log.Warn().Err(err).Msg("preferences reload failed, keeping previous snapshot")
		}
	}

	report, err := s.runner.RunPass(ctx)

	st := Status{
		PassID:     report.PassID,
		FinishedAt: time.Now(),
		Booked:     len(report.Booked()),
		Processed:  len(report.Outcomes),
	}
	if err != nil {
		st.Error = err.Error()
		s.log.Error().Err(err).Str("pass_id", report.PassID).Msg("pass failed")
	}

	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
}

func (s *Scheduler) setRunning(r bool) {
	s.mu.Lock()
	s.last.Running = r
	s.mu.Unlock()
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
