package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/api/response"
	"github.com/wavecap/wavecap/internal/schedule"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

const anchorDateLayout = "2006-01-02"

// ScheduleStore defines the schedule operations the handlers depend on.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, schedule *models.Schedule) error
	SetScheduleStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
	ListSchedules(ctx context.Context) ([]*models.Schedule, error)
	GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error)
}

type scheduleRequest struct {
	StationID  string `json:"station_id"`
	Recurrence string `json:"recurrence"`
	AnchorDate string `json:"anchor_date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Weekdays   []int  `json:"weekdays"`
}

// parse validates the request body fields and returns a schedule ready for
// ValidateSchedule. Field-level format errors come back as messages; the
// semantic checks live in the schedule package.
func (req *scheduleRequest) parse() (*models.Schedule, string) {
	stationID, err := uuid.Parse(req.StationID)
	if err != nil {
		return nil, "station_id must be a valid UUID"
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, "start_time must be in HH:MM format"
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, "end_time must be in HH:MM format"
	}

	s := &models.Schedule{
		StationID:  stationID,
		Recurrence: req.Recurrence,
		StartTime:  start,
		EndTime:    end,
		Weekdays:   req.Weekdays,
		Status:     models.ScheduleActive,
	}
	if req.AnchorDate != "" {
		anchor, err := time.Parse(anchorDateLayout, req.AnchorDate)
		if err != nil {
			return nil, "anchor_date must be in YYYY-MM-DD format"
		}
		s.AnchorDate = anchor
	}
	return s, ""
}

type scheduleResponse struct {
	*models.Schedule
	NextDue *time.Time `json:"next_due,omitempty"`
}

func withNextDue(s *models.Schedule, loc *time.Location) scheduleResponse {
	resp := scheduleResponse{Schedule: s}
	if next, ok := schedule.NextDueInstant(s, time.Now().UTC(), loc); ok {
		resp.NextDue = &next
	}
	return resp
}

// NewCreateScheduleHandler returns an http.HandlerFunc for POST /api/v1/schedules.
func NewCreateScheduleHandler(svc ScheduleStore, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		s, msg := req.parse()
		if msg != "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
			return
		}
		if err := schedule.ValidateSchedule(s); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_SCHEDULE", err.Error(), nil)
			return
		}

		if _, err := svc.GetStation(r.Context(), s.StationID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Station not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		s.ID = uuid.New()
		if err := svc.CreateSchedule(r.Context(), s); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.Created(w, withNextDue(s, loc))
	}
}

// NewListSchedulesHandler returns an http.HandlerFunc for GET /api/v1/schedules.
func NewListSchedulesHandler(svc ScheduleStore, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schedules, err := svc.ListSchedules(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		out := make([]scheduleResponse, len(schedules))
		for i, s := range schedules {
			out[i] = withNextDue(s, loc)
		}
		response.JSON(w, out)
	}
}

// NewGetScheduleHandler returns an http.HandlerFunc for GET /api/v1/schedules/{scheduleID}.
func NewGetScheduleHandler(svc ScheduleStore, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid schedule ID", nil)
			return
		}

		s, err := svc.GetSchedule(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Schedule not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, withNextDue(s, loc))
	}
}

// NewUpdateScheduleHandler returns an http.HandlerFunc for PUT /api/v1/schedules/{scheduleID}.
func NewUpdateScheduleHandler(svc ScheduleStore, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid schedule ID", nil)
			return
		}

		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		parsed, msg := req.parse()
		if msg != "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
			return
		}
		if err := schedule.ValidateSchedule(parsed); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_SCHEDULE", err.Error(), nil)
			return
		}

		existing, err := svc.GetSchedule(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Schedule not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		existing.StationID = parsed.StationID
		existing.Recurrence = parsed.Recurrence
		existing.AnchorDate = parsed.AnchorDate
		existing.StartTime = parsed.StartTime
		existing.EndTime = parsed.EndTime
		existing.Weekdays = parsed.Weekdays

		if err := svc.UpdateSchedule(r.Context(), existing); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, withNextDue(existing, loc))
	}
}

// NewToggleScheduleHandler returns an http.HandlerFunc for
// POST /api/v1/schedules/{scheduleID}/toggle. Toggling never touches jobs
// already created by the schedule.
func NewToggleScheduleHandler(svc ScheduleStore, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid schedule ID", nil)
			return
		}

		s, err := svc.GetSchedule(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Schedule not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		next := models.ScheduleActive
		if s.Status == models.ScheduleActive {
			next = models.ScheduleInactive
		}
		if err := svc.SetScheduleStatus(r.Context(), id, next); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		s.Status = next
		response.JSON(w, withNextDue(s, loc))
	}
}

// NewDeleteScheduleHandler returns an http.HandlerFunc for DELETE /api/v1/schedules/{scheduleID}.
func NewDeleteScheduleHandler(svc ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid schedule ID", nil)
			return
		}

		if err := svc.DeleteSchedule(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Schedule not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.NoContent(w)
	}
}
