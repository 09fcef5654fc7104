package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/cache"
	"github.com/wavecap/wavecap/internal/capture"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

var (
	ErrInvalidDuration = errors.New("duration out of range")
	ErrNotStoppable    = errors.New("job is not in a stoppable state")
	ErrBatchChildStop  = errors.New("batch child jobs are stopped through their batch")
)

// LostContactError is the error message recorded when reconciliation
// detects a silent capture failure.
const LostContactError = "lost-contact"

const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 240
)

const statusCacheTTL = 30 * time.Minute

// Config carries the lifecycle knobs the source system left open: how long
// a job may go silent before it is declared lost, and whether recordings
// are routed through a post-processing step after capture.
type Config struct {
	LostContactGrace time.Duration
	PostProcessing   bool
}

// Manager owns the job state machine. It is the single writer of job
// status; the capture agent reports transitions inward but never owns the
// record, and "is station X recording" is answered here, not by ad-hoc
// flags.
type Manager struct {
	store store.Store
	agent capture.Client
	cache cache.Cache
	cfg   Config
	now   func() time.Time
}

func NewManager(st store.Store, agent capture.Client, ca cache.Cache, cfg Config) *Manager {
	return &Manager{
		store: st,
		agent: agent,
		cache: ca,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateParams describes a new recording attempt.
type CreateParams struct {
	StationID       uuid.UUID
	DurationMinutes int
	Kind            string
	ScheduleID      *uuid.UUID
	BatchID         *uuid.UUID
	ScheduledFor    *time.Time
}

// Create persists a new job in starting. It does not dispatch the capture;
// callers follow with Start.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*models.Job, error) {
	if p.DurationMinutes < MinDurationMinutes || p.DurationMinutes > MaxDurationMinutes {
		return nil, fmt.Errorf("%w: %d minutes (allowed %d-%d)",
			ErrInvalidDuration, p.DurationMinutes, MinDurationMinutes, MaxDurationMinutes)
	}
	switch p.Kind {
	case models.JobKindManual, models.JobKindScheduled, models.JobKindBatch:
	default:
		return nil, fmt.Errorf("unknown job kind %q", p.Kind)
	}

	now := m.now()
	job := &models.Job{
		ID:              uuid.New(),
		StationID:       p.StationID,
		ScheduleID:      p.ScheduleID,
		BatchID:         p.BatchID,
		Kind:            p.Kind,
		DurationMinutes: p.DurationMinutes,
		Status:          models.JobStatusStarting,
		ScheduledFor:    p.ScheduledFor,
		LastReportAt:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	_ = m.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL)

	return job, nil
}

// Start dispatches the capture for a job in starting. A dispatch failure is
// converted to a failed transition with the cause recorded on the job; the
// returned error is informational, so fan-out callers can note the outcome
// and move on without any unwinding.
func (m *Manager) Start(ctx context.Context, job *models.Job) error {
	station, err := m.store.GetStation(ctx, job.StationID)
	if err != nil {
		return m.fail(ctx, job.ID, fmt.Errorf("loading station: %w", err))
	}

	err = m.agent.Start(ctx, capture.StartRequest{
		JobID:           job.ID,
		StationID:       station.ID,
		StreamURL:       station.StreamURL,
		DurationMinutes: job.DurationMinutes,
		BitrateKbps:     station.BitrateKbps,
		OutputFormat:    station.OutputFormat,
	})
	if err != nil {
		return m.fail(ctx, job.ID, err)
	}
	return nil
}

// StartManual creates and starts an ad-hoc job. A start failure is visible
// on the returned job's status, not as an error.
func (m *Manager) StartManual(ctx context.Context, stationID uuid.UUID, durationMinutes int) (*models.Job, error) {
	job, err := m.Create(ctx, CreateParams{
		StationID:       stationID,
		DurationMinutes: durationMinutes,
		Kind:            models.JobKindManual,
	})
	if err != nil {
		return nil, err
	}

	if err := m.Start(ctx, job); err != nil {
		slog.Warn("manual job start failed", "job_id", job.ID, "station_id", stationID, "error", err)
	}
	return m.store.GetJob(ctx, job.ID)
}

// Stop ends a job early. Legal only from starting, recording, or
// processing; batch children are rejected here and stopped through
// StopBatch.
func (m *Manager) Stop(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Kind == models.JobKindBatch {
		return nil, ErrBatchChildStop
	}
	return m.stop(ctx, job)
}

// StopBatch issues a stop against each still-active child of a batch.
// Returns the number of children stopped.
func (m *Manager) StopBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	stopped := 0
	for page := 1; ; page++ {
		jobs, _, err := m.store.ListJobs(ctx, store.JobFilter{BatchID: batchID, Page: page, Limit: 100})
		if err != nil {
			return stopped, err
		}
		for _, job := range jobs {
			if job.IsTerminal() {
				continue
			}
			if _, err := m.stop(ctx, job); err != nil {
				slog.Warn("batch child stop failed", "job_id", job.ID, "error", err)
				continue
			}
			stopped++
		}
		if len(jobs) < 100 {
			return stopped, nil
		}
	}
}

func (m *Manager) stop(ctx context.Context, job *models.Job) (*models.Job, error) {
	switch job.Status {
	case models.JobStatusStarting, models.JobStatusRecording, models.JobStatusProcessing:
	default:
		return nil, fmt.Errorf("%w: status %s", ErrNotStoppable, job.Status)
	}

	if err := m.agent.Stop(ctx, job.ID); err != nil && !errors.Is(err, capture.ErrCaptureUnknown) {
		// The job still completes; the agent's capture runs out on its own.
		slog.Warn("capture stop dispatch failed", "job_id", job.ID, "error", err)
	}

	if err := m.store.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted); err != nil {
		return nil, err
	}
	_ = m.cache.SetJobStatus(ctx, job.ID, models.JobStatusCompleted, statusCacheTTL)

	return m.store.GetJob(ctx, job.ID)
}

// Observe returns the job's current status, serving from the cache mirror
// when fresh.
func (m *Manager) Observe(ctx context.Context, jobID uuid.UUID) (string, error) {
	if status, ok, err := m.cache.GetJobStatus(ctx, jobID); err == nil && ok {
		return status, nil
	}
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

// ReportStatus applies an agent status report to the job state machine.
// Reports arrive by push (the agent calling in) or pull (the poll loop);
// both paths land here. Reports against terminal jobs are ignored.
func (m *Manager) ReportStatus(ctx context.Context, report *capture.StatusReport) error {
	job, err := m.store.GetJob(ctx, report.JobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}

	switch report.Status {
	case capture.ReportRecording:
		if job.Status == models.JobStatusStarting {
			return m.transition(ctx, job.ID, models.JobStatusRecording)
		}
		// Already recording (or processing a stale ack): just note the
		// contact so reconciliation doesn't fire.
		return m.store.TouchJob(ctx, job.ID)

	case capture.ReportFinished:
		var opts []store.JobUpdateOption
		if report.FileName != "" {
			opts = append(opts, store.WithFile(report.FileName, report.FileURL))
		}
		if report.FileSizeMB > 0 {
			opts = append(opts, store.WithFileSizeMB(report.FileSizeMB))
		}

		next := models.JobStatusCompleted
		if m.cfg.PostProcessing && job.Status == models.JobStatusRecording {
			next = models.JobStatusProcessing
		}
		return m.transition(ctx, job.ID, next, opts...)

	case capture.ReportFailed:
		msg := report.Error
		if msg == "" {
			msg = "capture failed"
		}
		return m.transition(ctx, job.ID, models.JobStatusFailed, store.WithErrorMessage(msg))

	default:
		return fmt.Errorf("unknown capture status %q for job %s", report.Status, report.JobID)
	}
}

// Reconcile forces failed on a non-terminal job whose agent has gone
// silent past the grace period. The authoritative substitute for guessing
// at completion with client-side timers.
func (m *Manager) Reconcile(ctx context.Context, job *models.Job, now time.Time) error {
	if job.IsTerminal() {
		return nil
	}
	if now.Sub(job.LastReportAt) <= m.cfg.LostContactGrace {
		return nil
	}

	slog.Warn("job lost contact", "job_id", job.ID, "station_id", job.StationID,
		"last_report_at", job.LastReportAt)
	return m.transition(ctx, job.ID, models.JobStatusFailed, store.WithErrorMessage(LostContactError))
}

// IsStationBusy reports whether any non-terminal job exists for a station.
func (m *Manager) IsStationBusy(ctx context.Context, stationID uuid.UUID) (bool, error) {
	jobs, err := m.store.ListNonTerminalJobs(ctx)
	if err != nil {
		return false, err
	}
	for _, job := range jobs {
		if job.StationID == stationID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) transition(ctx context.Context, jobID uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	if err := m.store.UpdateJobStatus(ctx, jobID, status, opts...); err != nil {
		return err
	}
	_ = m.cache.SetJobStatus(ctx, jobID, status, statusCacheTTL)
	return nil
}

// fail records a dispatch failure on the job and passes the cause back for
// the caller's outcome bookkeeping.
func (m *Manager) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	if err := m.transition(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(cause.Error())); err != nil {
		slog.Error("recording job failure state", "job_id", jobID, "error", err)
	}
	return cause
}
