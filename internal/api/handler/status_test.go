package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecap/wavecap/internal/api/handler"
	"github.com/wavecap/wavecap/internal/capture"
	"github.com/wavecap/wavecap/internal/store"
)

type fakeSink struct {
	got *capture.StatusReport
	err error
}

func (f *fakeSink) ReportStatus(_ context.Context, report *capture.StatusReport) error {
	f.got = report
	return f.err
}

func TestCaptureStatus_Applied(t *testing.T) {
	sink := &fakeSink{}
	h := handler.NewCaptureStatusHandler(sink)
	jobID := uuid.New()

	req := jsonReq(t, "POST", "/api/v1/capture/status", map[string]any{
		"job_id":       jobID.String(),
		"status":       "finished",
		"file_name":    "rec-20260314-0800.mp3",
		"file_url":     "https://files.example.com/rec-20260314-0800.mp3",
		"file_size_mb": 54.2,
	})
	w := serve("POST", "/api/v1/capture/status", h, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, sink.got)
	assert.Equal(t, jobID, sink.got.JobID)
	assert.Equal(t, capture.ReportFinished, sink.got.Status)
	assert.Equal(t, "rec-20260314-0800.mp3", sink.got.FileName)
	assert.InDelta(t, 54.2, sink.got.FileSizeMB, 0.001)
}

func TestCaptureStatus_BadJobID(t *testing.T) {
	h := handler.NewCaptureStatusHandler(&fakeSink{})

	req := jsonReq(t, "POST", "/api/v1/capture/status", map[string]any{
		"job_id": "nope",
		"status": "recording",
	})
	w := serve("POST", "/api/v1/capture/status", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaptureStatus_UnknownStatus(t *testing.T) {
	sink := &fakeSink{}
	h := handler.NewCaptureStatusHandler(sink)

	req := jsonReq(t, "POST", "/api/v1/capture/status", map[string]any{
		"job_id": uuid.NewString(),
		"status": "paused",
	})
	w := serve("POST", "/api/v1/capture/status", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, sink.got)
}

func TestCaptureStatus_JobNotFound(t *testing.T) {
	h := handler.NewCaptureStatusHandler(&fakeSink{err: store.ErrNotFound})

	req := jsonReq(t, "POST", "/api/v1/capture/status", map[string]any{
		"job_id": uuid.NewString(),
		"status": "recording",
	})
	w := serve("POST", "/api/v1/capture/status", h, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeErr(t, w)["code"])
}

func TestCaptureStatus_ConflictingReport(t *testing.T) {
	h := handler.NewCaptureStatusHandler(&fakeSink{err: store.ErrInvalidTransition})

	req := jsonReq(t, "POST", "/api/v1/capture/status", map[string]any{
		"job_id": uuid.NewString(),
		"status": "recording",
	})
	w := serve("POST", "/api/v1/capture/status", h, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeErr(t, w)["code"])
}
