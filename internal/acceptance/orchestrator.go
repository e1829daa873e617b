package acceptance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/evaluation"
	"jobmate/acceptance-service/internal/model"
	"jobmate/acceptance-service/internal/preferences"
	"jobmate/acceptance-service/internal/slots"
)

// ErrStoreUnavailable aborts a pass when the accepted-job store or the
// day-cap ledger cannot be read.
var ErrStoreUnavailable = errors.New("acceptance: accepted-job store unavailable")

// ErrSourceUnavailable aborts a pass when the job source fails.
var ErrSourceUnavailable = errors.New("acceptance: job source unavailable")

// Outcome is the final stage of one job in a pass.
type Outcome struct {
	JobID       string    `json:"jobId"`
	Title       string    `json:"title"`
	Score       float64   `json:"score"`
	Stage       Stage     `json:"stage"`
	Reason      string    `json:"reason,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt,omitempty"`
}

// Report summarises a pass. Outcomes are in processing (priority) order.
// Unprocessed holds the jobs an interrupted or aborted pass never finished,
// in priority order.
type Report struct {
	PassID      string      `json:"passId"`
	StartedAt   time.Time   `json:"startedAt"`
	Outcomes    []Outcome   `json:"outcomes"`
	Interrupted bool        `json:"interrupted"`
	Unprocessed []model.Job `json:"-"`
}

// Count returns how many jobs ended the pass in stage s.
func (r Report) Count(s Stage) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Stage == s {
			n++
		}
	}
	return n
}

// Booked returns the outcomes that committed a booking.
func (r Report) Booked() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if IsBooked(o.Stage) {
			out = append(out, o)
		}
	}
	return out
}

// Deps are the collaborators of an Orchestrator. Publisher may be nil.
type Deps struct {
	Source      JobSource
	Preferences PreferencesSource
	Store       Store
	Selector    SlotSelector
	Calendar    Calendar
	Confirmer   Confirmer
	Notifier    Notifier
	Publisher   EventPublisher
}

// Orchestrator drives jobs through the stage graph, one at a time.
type Orchestrator struct {
	deps        Deps
	loc         *time.Location
	now         func() time.Time
	callTimeout time.Duration
	eventPrefix string
	log         zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCallTimeout bounds each commit and notification call.
func WithCallTimeout(d time.Duration) Option { return func(o *Orchestrator) { o.callTimeout = d } }

// WithClock overrides time.Now for AcceptedAt stamps.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithLocation sets the zone used in user-facing messages.
func WithLocation(loc *time.Location) Option { return func(o *Orchestrator) { o.loc = loc } }

// WithEventPrefix sets the calendar event summary prefix.
func WithEventPrefix(p string) Option { return func(o *Orchestrator) { o.eventPrefix = p } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// New builds an Orchestrator.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:        deps,
		loc:         time.Local,
		now:         time.Now,
		callTimeout: 15 * time.Second,
		eventPrefix: "MrFix: ",
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunPass fetches new jobs, snapshots the preferences and processes the
// batch. A source failure returns before any job is touched.
func (o *Orchestrator) RunPass(ctx context.Context) (Report, error) {
	passID := uuid.NewString()
	log := o.log.With().Str("pass_id", passID).Logger()

	fetchCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	jobs, err := o.deps.Source.FetchNewJobs(fetchCtx)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("fetching new jobs failed, pass aborted")
		return Report{PassID: passID, StartedAt: o.now()}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if len(jobs) == 0 {
		log.Debug().Msg("no new jobs")
		return Report{PassID: passID, StartedAt: o.now()}, nil
	}

	report, err := o.processBatch(ctx, passID, jobs, o.deps.Preferences.Snapshot())
	if len(report.Unprocessed) > 0 {
		o.giveBack(ctx, report.Unprocessed, log)
	}
	return report, err
}

// giveBack returns unfinished jobs to a source that supports it so the next
// pass sees them again. It runs even when ctx is already cancelled.
func (o *Orchestrator) giveBack(ctx context.Context, jobs []model.Job, log zerolog.Logger) {
	rq, ok := o.deps.Source.(Requeuer)
	if !ok {
		log.Warn().Int("jobs", len(jobs)).Msg("job source cannot requeue, unfinished jobs depend on being re-sent")
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.callTimeout)
	defer cancel()
	if err := rq.Requeue(rctx, jobs); err != nil {
		log.Error().Err(err).Int("jobs", len(jobs)).Msg("requeue of unfinished jobs failed")
		return
	}
	log.Info().Int("jobs", len(jobs)).Msg("unfinished jobs returned to the source")
}

// ProcessBatch runs one pass over jobs with a fixed preferences snapshot.
// Job-local failures are recorded in the Report; only store read failures
// return an error. Cancelling ctx stops the batch before the next job but
// never interrupts a commit in flight. Unfinished jobs are listed in
// Report.Unprocessed; unlike RunPass, ProcessBatch does not requeue them.
func (o *Orchestrator) ProcessBatch(ctx context.Context, jobs []model.Job, p preferences.Preferences) (Report, error) {
	return o.processBatch(ctx, uuid.NewString(), jobs, p)
}

func (o *Orchestrator) processBatch(ctx context.Context, passID string, jobs []model.Job, p preferences.Preferences) (Report, error) {
	log := o.log.With().Str("pass_id", passID).Logger()
	report := Report{PassID: passID, StartedAt: o.now()}

	ranked := evaluation.Rank(dedupe(jobs, log), p)
	log.Info().Int("jobs", len(ranked)).Msg("pass started")

	for i, r := range ranked {
		if ctx.Err() != nil {
			report.Interrupted = true
			report.Unprocessed = jobsOf(ranked[i:])
			log.Info().Msg("stop requested, leaving remaining jobs for a later pass")
			break
		}

		out, err := o.processJob(ctx, r, p, log)
		if err != nil {
			report.Unprocessed = jobsOf(ranked[i:])
			if ctx.Err() != nil {
				report.Interrupted = true
				log.Info().Str("job_id", r.Job.ID).Msg("stop requested during job")
				break
			}
			log.Error().Err(err).Str("job_id", r.Job.ID).Msg("pass aborted")
			return report, err
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	log.Info().
		Int("booked", len(report.Booked())).
		Int("rejected", report.Count(StageRejected)).
		Int("no_slot", report.Count(StageNoSlot)).
		Int("already_handled", report.Count(StageAlreadyHandled)).
		Int("commit_failed", report.Count(StageCommitFailed)).
		Bool("interrupted", report.Interrupted).
		Msg("pass finished")
	return report, nil
}

func jobsOf(ranked []evaluation.Ranked) []model.Job {
	out := make([]model.Job, len(ranked))
	for i, r := range ranked {
		out[i] = r.Job
	}
	return out
}

// dedupe keeps the first occurrence of every job ID.
func dedupe(jobs []model.Job, log zerolog.Logger) []model.Job {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := seen[j.ID]; ok {
			log.Debug().Str("job_id", j.ID).Msg("duplicate job in batch dropped")
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, j)
	}
	return out
}

// progress carries one job through the stage graph.
type progress struct {
	out Outcome
	log zerolog.Logger
}

func (pr *progress) advance(to Stage, reason string) {
	if !IsTransitionAllowed(pr.out.Stage, to) {
		pr.log.Error().Str("from", string(pr.out.Stage)).Str("to", string(to)).Msg("illegal stage transition")
	}
	pr.out.Stage = to
	pr.out.Reason = reason
}

func (pr *progress) finish() Outcome {
	ev := pr.log.Info()
	if pr.out.Stage == StageCommitFailed {
		ev = pr.log.Warn()
	}
	ev.Str("stage", string(pr.out.Stage)).Str("reason", pr.out.Reason).Msg("job processed")
	return pr.out
}

func (o *Orchestrator) processJob(ctx context.Context, r evaluation.Ranked, p preferences.Preferences, passLog zerolog.Logger) (Outcome, error) {
	job := r.Job
	pr := &progress{
		out: Outcome{JobID: job.ID, Title: job.Title, Score: r.Score, Stage: StageDiscovered},
		log: passLog.With().Str("job_id", job.ID).Float64("score", r.Score).Logger(),
	}
	pr.advance(StageSorted, "")

	handled, err := o.deps.Store.Exists(ctx, job.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: exists %s: %v", ErrStoreUnavailable, job.ID, err)
	}
	if handled {
		pr.advance(StageAlreadyHandled, "already accepted")
		return pr.finish(), nil
	}

	why, ok := evaluation.Eligible(job, p)
	if !ok {
		pr.advance(StageRejected, "no preferred category, rate below minimum and not an urgent match")
		return pr.finish(), nil
	}
	pr.advance(StagePassed, why)

	if evaluation.NeedsPermission(job, p) {
		approved, err := o.deps.Notifier.RequestPermission(ctx, permissionMessage(job), job)
		switch {
		case err != nil && ctx.Err() != nil:
			return Outcome{}, fmt.Errorf("permission request for %s: %w", job.ID, err)
		case err != nil:
			pr.advance(StageRejected, "permission request failed: "+err.Error())
			return pr.finish(), nil
		case !approved:
			pr.advance(StageRejected, fmt.Sprintf("permission denied for %.1f km", job.DistanceKm))
			return pr.finish(), nil
		}
		pr.log.Info().Float64("distance_km", job.DistanceKm).Msg("permission granted")
	}

	sel, found, err := o.deps.Selector.Select(ctx, job, p)
	if err != nil {
		if errors.Is(err, slots.ErrLedgerUnavailable) {
			return Outcome{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Outcome{}, err
	}
	if !found {
		pr.advance(StageNoSlot, "no free slot under the day cap")
		return pr.finish(), nil
	}
	pr.advance(StageSlotSelected, sel.Candidate.String())
	pr.out.ScheduledAt = sel.At()

	accepted, err := o.commit(ctx, job, sel, pr.log)
	if err != nil {
		pr.advance(StageCommitFailed, err.Error())
		return pr.finish(), nil
	}
	pr.advance(StageCommitted, "")

	o.publish(ctx, accepted, pr.log)

	if err := o.notify(ctx, job, sel); err != nil {
		pr.advance(StageNotifySkipped, "notification failed: "+err.Error())
		return pr.finish(), nil
	}
	pr.advance(StageNotified, "scheduled "+sel.Candidate.String())
	return pr.finish(), nil
}

// commit performs confirm → calendar event → store insert. The steps run
// detached from ctx so a stop request never leaves a half-written booking;
// each call is still bounded by the call timeout.
func (o *Orchestrator) commit(ctx context.Context, job model.Job, sel slots.Selection, log zerolog.Logger) (model.AcceptedJob, error) {
	cctx := context.WithoutCancel(ctx)

	if err := o.bounded(cctx, func(c context.Context) error {
		return o.deps.Confirmer.Confirm(c, job.AcceptToken, sel.At())
	}); err != nil {
		return model.AcceptedJob{}, fmt.Errorf("confirm: %w", err)
	}

	ev := model.CalendarEvent{
		Summary:     o.eventPrefix + job.Title,
		Location:    job.Location,
		Description: job.Description,
		Start:       sel.At(),
		End:         sel.End(),
	}
	if err := o.bounded(cctx, func(c context.Context) error {
		return o.deps.Calendar.CreateEvent(c, ev)
	}); err != nil {
		log.Warn().Err(err).Time("scheduled_at", sel.At()).
			Msg("job confirmed on the platform but calendar event failed, reconcile manually")
		return model.AcceptedJob{}, fmt.Errorf("create calendar event: %w", err)
	}

	accepted := model.AcceptedJob{
		JobID:       job.ID,
		Title:       job.Title,
		Description: job.Description,
		Location:    job.Location,
		DatePosted:  job.DatePosted,
		ScheduledAt: sel.At(),
		Duration:    sel.Duration,
		AcceptedAt:  o.now(),
	}
	if err := o.bounded(cctx, func(c context.Context) error {
		return o.deps.Store.Insert(c, accepted)
	}); err != nil {
		log.Warn().Err(err).Time("scheduled_at", sel.At()).
			Msg("job confirmed and in calendar but not recorded, reconcile manually")
		return model.AcceptedJob{}, fmt.Errorf("record accepted job: %w", err)
	}
	return accepted, nil
}

func (o *Orchestrator) notify(ctx context.Context, job model.Job, sel slots.Selection) error {
	title := "Job accepted: " + job.Title
	body := fmt.Sprintf("Scheduled for %s in %s", sel.At().In(o.loc).Format("2006-01-02 15:04"), job.Location)
	return o.bounded(context.WithoutCancel(ctx), func(c context.Context) error {
		return o.deps.Notifier.Notify(c, title, body)
	})
}

func (o *Orchestrator) publish(ctx context.Context, job model.AcceptedJob, log zerolog.Logger) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.bounded(context.WithoutCancel(ctx), func(c context.Context) error {
		return o.deps.Publisher.PublishAccepted(c, job)
	}); err != nil {
		// Non-fatal: the booking is already recorded.
		log.Warn().Err(err).Msg("failed to publish job accepted event")
	}
}

func (o *Orchestrator) bounded(ctx context.Context, call func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return call(c)
}

func permissionMessage(job model.Job) string {
	return fmt.Sprintf("Job outside home base (%.1f km): %s in %s. Accept?", job.DistanceKm, job.Title, job.Location)
}
