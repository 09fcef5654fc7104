package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/api/response"
	"github.com/wavecap/wavecap/internal/capture"
	"github.com/wavecap/wavecap/internal/store"
)

// StatusSink applies inbound capture agent reports to the job state machine.
type StatusSink interface {
	ReportStatus(ctx context.Context, report *capture.StatusReport) error
}

// NewCaptureStatusHandler returns an http.HandlerFunc for POST /api/v1/capture/status,
// the push half of status reporting. The poll loop covers agents that
// never call in.
func NewCaptureStatusHandler(svc StatusSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobID      string  `json:"job_id"`
			Status     string  `json:"status"`
			Error      string  `json:"error"`
			FileName   string  `json:"file_name"`
			FileURL    string  `json:"file_url"`
			FileSizeMB float64 `json:"file_size_mb"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		jobID, err := uuid.Parse(req.JobID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job_id must be a valid UUID", nil)
			return
		}
		switch req.Status {
		case capture.ReportRecording, capture.ReportFinished, capture.ReportFailed:
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be recording, finished, or failed", nil)
			return
		}

		err = svc.ReportStatus(r.Context(), &capture.StatusReport{
			JobID:      jobID,
			Status:     req.Status,
			Error:      req.Error,
			FileName:   req.FileName,
			FileURL:    req.FileURL,
			FileSizeMB: req.FileSizeMB,
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			case errors.Is(err, store.ErrInvalidTransition):
				response.Error(w, http.StatusConflict, "INVALID_TRANSITION",
					"Report conflicts with the job's current status", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}
		response.JSON(w, struct {
			JobID uuid.UUID `json:"job_id"`
		}{JobID: jobID})
	}
}
