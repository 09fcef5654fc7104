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
	"github.com/wavecap/wavecap/internal/batch"
	"github.com/wavecap/wavecap/internal/schedule"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// BatchOrchestrator defines the mass-recording operations the handlers
// depend on.
type BatchOrchestrator interface {
	CreateBatch(ctx context.Context, req batch.Request) (*batch.Result, error)
}

// BatchStore defines the batch read operations the handlers depend on.
type BatchStore interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, []*models.BatchItem, error)
}

// BatchStopper stops every still-active child of a batch.
type BatchStopper interface {
	StopBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}

// NewCreateBatchHandler returns an http.HandlerFunc for POST /api/v1/batches.
func NewCreateBatchHandler(svc BatchOrchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			State      string `json:"state"`
			City       string `json:"city"`
			StationCap int    `json:"station_cap"`
			Recurrence string `json:"recurrence"`
			AnchorDate string `json:"anchor_date"`
			StartTime  string `json:"start_time"`
			EndTime    string `json:"end_time"`
			Weekdays   []int  `json:"weekdays"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.State == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "state is required", nil)
			return
		}
		start, err := models.ParseTimeOfDay(req.StartTime)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"start_time must be in HH:MM format", nil)
			return
		}
		end, err := models.ParseTimeOfDay(req.EndTime)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"end_time must be in HH:MM format", nil)
			return
		}

		var anchor time.Time
		if req.AnchorDate != "" {
			anchor, err = time.Parse(anchorDateLayout, req.AnchorDate)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"anchor_date must be in YYYY-MM-DD format", nil)
				return
			}
		}

		result, err := svc.CreateBatch(r.Context(), batch.Request{
			State:      req.State,
			City:       req.City,
			StationCap: req.StationCap,
			Recurrence: req.Recurrence,
			AnchorDate: anchor,
			StartTime:  start,
			EndTime:    end,
			Weekdays:   req.Weekdays,
		})
		if err != nil {
			switch {
			case errors.Is(err, batch.ErrNoStationsMatched):
				response.Error(w, http.StatusNotFound, "NO_STATIONS_MATCHED",
					"No stations matched the selection filter", nil)
			case errors.Is(err, schedule.ErrInvalidRecurrence),
				errors.Is(err, schedule.ErrInvalidWindow):
				response.Error(w, http.StatusBadRequest, "INVALID_SCHEDULE", err.Error(), nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}
		response.Created(w, result)
	}
}

// NewGetBatchHandler returns an http.HandlerFunc for GET /api/v1/batches/{batchID}.
func NewGetBatchHandler(svc BatchStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid batch ID", nil)
			return
		}

		b, items, err := svc.GetBatch(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, struct {
			*models.Batch
			Items []*models.BatchItem `json:"items"`
		}{Batch: b, Items: items})
	}
}

// NewStopBatchHandler returns an http.HandlerFunc for DELETE /api/v1/batches/{batchID}.
// Stops each still-active child individually; already-terminal children
// are left as they ended.
func NewStopBatchHandler(svc BatchStopper, batches BatchStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid batch ID", nil)
			return
		}

		if _, _, err := batches.GetBatch(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Batch not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		stopped, err := svc.StopBatch(r.Context(), id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, struct {
			BatchID uuid.UUID `json:"batch_id"`
			Stopped int       `json:"stopped"`
		}{BatchID: id, Stopped: stopped})
	}
}
