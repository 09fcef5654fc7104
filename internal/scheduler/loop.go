package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/wavecap/wavecap/internal/capture"
	"github.com/wavecap/wavecap/internal/recorder"
	"github.com/wavecap/wavecap/internal/schedule"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// Loop is the periodic driver: one cadence checks which schedules are due
// and fires them, the other polls non-terminal jobs against the capture
// agent. All durable state lives in the store; the loop itself only
// remembers its last tick time.
type Loop struct {
	eval  *schedule.Evaluator
	rec   *recorder.Manager
	store store.Store
	agent capture.Client
	loc   *time.Location

	tickEvery time.Duration
	pollEvery time.Duration

	// tickMu makes Tick non-reentrant; overlapping invocations are
	// skipped, not queued. The per-day dedup in the evaluator is the
	// correctness backstop either way.
	tickMu sync.Mutex

	stateMu  sync.Mutex
	lastTick time.Time
}

func NewLoop(eval *schedule.Evaluator, rec *recorder.Manager, st store.Store, agent capture.Client,
	loc *time.Location, tickEvery, pollEvery time.Duration) *Loop {
	if loc == nil {
		loc = time.UTC
	}
	return &Loop{
		eval:      eval,
		rec:       rec,
		store:     st,
		agent:     agent,
		loc:       loc,
		tickEvery: tickEvery,
		pollEvery: pollEvery,
	}
}

// LastTick returns when the due-schedule pass last ran.
func (l *Loop) LastTick() time.Time {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.lastTick
}

// Tick evaluates every active schedule once and fires the due ones as
// scheduled jobs. One schedule's failure never stops evaluation of the
// rest.
func (l *Loop) Tick(ctx context.Context, now time.Time) error {
	if !l.tickMu.TryLock() {
		slog.Warn("tick skipped: previous tick still running")
		return nil
	}
	defer l.tickMu.Unlock()

	l.stateMu.Lock()
	l.lastTick = now
	l.stateMu.Unlock()

	schedules, err := l.store.ListActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("listing active schedules: %w", err)
	}

	fired := 0
	for _, sc := range schedules {
		due, err := l.eval.IsDue(ctx, sc, now)
		if err != nil {
			slog.Error("due check failed", "schedule_id", sc.ID, "error", err)
			continue
		}
		if !due {
			continue
		}
		if err := l.fire(ctx, sc, now); err != nil {
			slog.Error("firing schedule failed", "schedule_id", sc.ID, "error", err)
			continue
		}
		fired++
	}
	if fired > 0 {
		slog.Info("schedules fired", "count", fired, "evaluated", len(schedules))
	}
	return nil
}

// fire creates the scheduled job for this occurrence and dispatches its
// capture. The job is keyed to the same occurrence date the due check
// used, so a second tick inside the window finds it and stays quiet.
func (l *Loop) fire(ctx context.Context, sc *models.Schedule, now time.Time) error {
	occurrence := schedule.OccurrenceDate(sc, now, l.loc)
	duration, err := schedule.ResolveWindow(sc.StartTime, sc.EndTime)
	if err != nil {
		return err
	}

	job, err := l.rec.Create(ctx, recorder.CreateParams{
		StationID:       sc.StationID,
		DurationMinutes: duration,
		Kind:            models.JobKindScheduled,
		ScheduleID:      &sc.ID,
		ScheduledFor:    &occurrence,
	})
	if err != nil {
		// A duplicate here means a concurrent firing already claimed the
		// day; treat it as already done.
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("creating scheduled job: %w", err)
	}

	if err := l.rec.Start(ctx, job); err != nil {
		slog.Warn("scheduled job start failed", "job_id", job.ID, "schedule_id", sc.ID, "error", err)
	}
	return nil
}

// PollOngoing asks the agent about every non-terminal job, applying
// reported transitions and reconciling jobs the agent no longer knows.
func (l *Loop) PollOngoing(ctx context.Context, now time.Time) error {
	jobs, err := l.store.ListNonTerminalJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing non-terminal jobs: %w", err)
	}

	for _, job := range jobs {
		report, err := l.agent.Status(ctx, job.ID)
		if err != nil {
			if rerr := l.rec.Reconcile(ctx, job, now); rerr != nil {
				slog.Error("reconciling job", "job_id", job.ID, "error", rerr)
			}
			continue
		}
		if report.JobID == uuid.Nil {
			report.JobID = job.ID
		}
		if err := l.rec.ReportStatus(ctx, report); err != nil {
			slog.Error("applying status report", "job_id", job.ID, "error", err)
		}
	}
	return nil
}

// Run drives Tick and PollOngoing on their independent cadences until ctx
// is canceled.
func (l *Loop) Run(ctx context.Context) error {
	runner := cron.New()

	if _, err := runner.AddFunc(fmt.Sprintf("@every %s", l.tickEvery), func() {
		if err := l.Tick(ctx, time.Now().UTC()); err != nil {
			slog.Error("schedule tick", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("registering tick: %w", err)
	}

	if _, err := runner.AddFunc(fmt.Sprintf("@every %s", l.pollEvery), func() {
		if err := l.PollOngoing(ctx, time.Now().UTC()); err != nil {
			slog.Error("ongoing poll", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("registering poll: %w", err)
	}

	runner.Start()
	slog.Info("scheduler loop started", "tick_every", l.tickEvery, "poll_every", l.pollEvery)

	<-ctx.Done()
	<-runner.Stop().Done()
	slog.Info("scheduler loop stopped")
	return nil
}
