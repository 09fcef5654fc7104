package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/catalog"
	"github.com/wavecap/wavecap/internal/recorder"
	"github.com/wavecap/wavecap/internal/schedule"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// ErrNoStationsMatched is returned when the selection filter matches no
// stations; nothing is persisted in that case.
var ErrNoStationsMatched = errors.New("no stations matched the selection filter")

// Request describes one mass-recording request: which stations, and the
// window/recurrence every matched station gets.
type Request struct {
	State      string
	City       string
	StationCap int
	Recurrence string
	AnchorDate time.Time
	StartTime  models.TimeOfDay
	EndTime    models.TimeOfDay
	Weekdays   []int
}

// Outcome is the per-station result of a batch start attempt.
type Outcome struct {
	JobID       uuid.UUID `json:"job_id"`
	StationID   uuid.UUID `json:"station_id"`
	StationName string    `json:"station_name"`
	Started     bool      `json:"started"`
	Error       string    `json:"error,omitempty"`
}

// Result aggregates a batch: callers always get the counted total, never
// an all-or-nothing verdict.
type Result struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Total    int       `json:"total"`
	Started  int       `json:"started"`
	Outcomes []Outcome `json:"outcomes"`
}

// Orchestrator fans a mass-recording request out into one schedule and one
// job per matched station, starting each job behind its own error boundary
// so no station's failure touches its siblings.
type Orchestrator struct {
	catalog  catalog.Catalog
	store    store.Store
	recorder *recorder.Manager
	workers  int
	loc      *time.Location
	now      func() time.Time
}

func NewOrchestrator(cat catalog.Catalog, st store.Store, rec *recorder.Manager, workers int, loc *time.Location) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Orchestrator{
		catalog:  cat,
		store:    st,
		recorder: rec,
		workers:  workers,
		loc:      loc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch validates the request, persists the batch with all child
// schedules and jobs atomically, then attempts each start. Validation and
// persistence failures abort with no partial effect; start failures are
// recorded per station and never abort the batch.
func (o *Orchestrator) CreateBatch(ctx context.Context, req Request) (*Result, error) {
	proto := &models.Schedule{
		Recurrence: req.Recurrence,
		AnchorDate: req.AnchorDate,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Weekdays:   req.Weekdays,
		Status:     models.ScheduleActive,
	}
	if err := schedule.ValidateSchedule(proto); err != nil {
		return nil, err
	}
	duration, err := schedule.ResolveWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	stations, err := o.catalog.ListStations(ctx, store.StationFilter{
		State: req.State,
		City:  req.City,
		Cap:   req.StationCap,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving station filter: %w", err)
	}
	if len(stations) == 0 {
		return nil, ErrNoStationsMatched
	}

	now := o.now()

	batch := &models.Batch{
		ID:          uuid.New(),
		FilterState: req.State,
		Recurrence:  req.Recurrence,
		AnchorDate:  req.AnchorDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatedAt:   now,
	}
	if req.City != "" {
		batch.FilterCity = &req.City
	}
	if req.StationCap > 0 {
		batch.StationCap = &req.StationCap
	}

	schedules := make([]*models.Schedule, len(stations))
	jobs := make([]*models.Job, len(stations))
	for i, station := range stations {
		sc := &models.Schedule{
			ID:         uuid.New(),
			StationID:  station.ID,
			Recurrence: req.Recurrence,
			AnchorDate: req.AnchorDate,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Weekdays:   req.Weekdays,
			Status:     models.ScheduleActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		// Jobs must be keyed to the same occurrence date the evaluator's
		// dedup looks up, or a future-anchored one-shot would fire again.
		scheduledFor := schedule.OccurrenceDate(sc, now, o.loc)
		jobs[i] = &models.Job{
			ID:              uuid.New(),
			StationID:       station.ID,
			ScheduleID:      &sc.ID,
			BatchID:         &batch.ID,
			Kind:            models.JobKindBatch,
			DurationMinutes: duration,
			Status:          models.JobStatusStarting,
			ScheduledFor:    &scheduledFor,
			LastReportAt:    now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		schedules[i] = sc
	}

	if err := o.store.CreateBatchGraph(ctx, batch, schedules, jobs); err != nil {
		return nil, fmt.Errorf("persisting batch: %w", err)
	}

	outcomes := o.fanOut(ctx, batch.ID, stations, jobs)

	started := 0
	for _, oc := range outcomes {
		if oc.Started {
			started++
		}
	}
	slog.Info("batch created", "batch_id", batch.ID, "total", len(outcomes), "started", started)

	return &Result{
		BatchID:  batch.ID,
		Total:    len(outcomes),
		Started:  started,
		Outcomes: outcomes,
	}, nil
}

type startTask struct {
	idx     int
	station *models.Station
	job     *models.Job
}

// fanOut attempts each job's start on a bounded worker pool. Tasks are
// queued in catalog order; each worker writes only its own outcome slot
// and appends its own batch item, so one station's failure is invisible
// to the rest.
func (o *Orchestrator) fanOut(ctx context.Context, batchID uuid.UUID, stations []*models.Station, jobs []*models.Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	tasks := make(chan startTask)

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				outcome := Outcome{
					JobID:       t.job.ID,
					StationID:   t.station.ID,
					StationName: t.station.Name,
					Started:     true,
				}
				if err := o.recorder.Start(ctx, t.job); err != nil {
					outcome.Started = false
					outcome.Error = err.Error()
					slog.Warn("batch station start failed",
						"batch_id", batchID, "station_id", t.station.ID, "error", err)
				}
				outcomes[t.idx] = outcome

				item := &models.BatchItem{
					BatchID:   batchID,
					JobID:     t.job.ID,
					StationID: t.station.ID,
					Position:  t.idx,
					Started:   outcome.Started,
				}
				if outcome.Error != "" {
					msg := outcome.Error
					item.ErrorMessage = &msg
				}
				if err := o.store.AppendBatchItem(ctx, item); err != nil {
					slog.Error("appending batch item", "batch_id", batchID, "job_id", t.job.ID, "error", err)
				}
			}
		}()
	}

	for i := range jobs {
		tasks <- startTask{idx: i, station: stations[i], job: jobs[i]}
	}
	close(tasks)
	wg.Wait()

	return outcomes
}
