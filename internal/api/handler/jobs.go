package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/api/response"
	"github.com/wavecap/wavecap/internal/recorder"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

const (
	defaultJobPageLimit = 20
	maxJobPageLimit     = 100
)

// Recorder defines the job lifecycle operations the handlers depend on.
type Recorder interface {
	StartManual(ctx context.Context, stationID uuid.UUID, durationMinutes int) (*models.Job, error)
	Stop(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	Observe(ctx context.Context, jobID uuid.UUID) (string, error)
}

// JobStore defines the job read operations the handlers depend on.
type JobStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
	ListNonTerminalJobs(ctx context.Context) ([]*models.Job, error)
}

// NewStartRecordingHandler returns an http.HandlerFunc for POST /api/v1/recordings.
// A dispatch failure still returns 201; the job carries failed status and
// the cause in error_message.
func NewStartRecordingHandler(svc Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StationID       string `json:"station_id"`
			DurationMinutes int    `json:"duration_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		stationID, err := uuid.Parse(req.StationID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "station_id must be a valid UUID", nil)
			return
		}

		job, err := svc.StartManual(r.Context(), stationID, req.DurationMinutes)
		if err != nil {
			switch {
			case errors.Is(err, recorder.ErrInvalidDuration):
				response.Error(w, http.StatusBadRequest, "INVALID_DURATION", err.Error(), nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Station not found", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}
		response.Created(w, job)
	}
}

// NewStopRecordingHandler returns an http.HandlerFunc for DELETE /api/v1/recordings/{jobID}.
func NewStopRecordingHandler(svc Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
			return
		}

		job, err := svc.Stop(r.Context(), jobID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			case errors.Is(err, recorder.ErrNotStoppable):
				response.Error(w, http.StatusConflict, "NOT_STOPPABLE",
					"Job is not in a stoppable state", nil)
			case errors.Is(err, recorder.ErrBatchChildStop):
				response.Error(w, http.StatusConflict, "BATCH_CHILD",
					"Batch child jobs are stopped through their batch", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}
		response.JSON(w, job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/recordings/{jobID}.
func NewGetJobHandler(svc JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/recordings.
func NewListJobsHandler(svc JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.JobFilter{
			Status: q.Get("status"),
			Kind:   q.Get("kind"),
			Page:   1,
			Limit:  defaultJobPageLimit,
		}

		if raw := q.Get("station_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"station_id must be a valid UUID", nil)
				return
			}
			filter.StationID = id
		}
		if raw := q.Get("batch_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"batch_id must be a valid UUID", nil)
				return
			}
			filter.BatchID = id
		}
		if raw := q.Get("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"page must be a positive integer", nil)
				return
			}
			filter.Page = page
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > maxJobPageLimit {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be between 1 and 100", nil)
				return
			}
			filter.Limit = limit
		}

		jobs, total, err := svc.ListJobs(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.Collection(w, jobs, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/recordings/{jobID}/status.
// Served from the cache mirror when fresh, so dashboards can poll it
// cheaply.
func NewJobStatusHandler(svc Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
			return
		}

		status, err := svc.Observe(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, struct {
			JobID  uuid.UUID `json:"job_id"`
			Status string    `json:"status"`
		}{JobID: jobID, Status: status})
	}
}

// NewListOngoingHandler returns an http.HandlerFunc for GET /api/v1/recordings/ongoing.
func NewListOngoingHandler(svc JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := svc.ListNonTerminalJobs(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, jobs)
	}
}
