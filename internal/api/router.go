package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/wavecap/wavecap/internal/api/middleware"
	"github.com/wavecap/wavecap/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateStation http.HandlerFunc
	ListStations  http.HandlerFunc
	GetStation    http.HandlerFunc
	UpdateStation http.HandlerFunc
	DeleteStation http.HandlerFunc

	CreateSchedule http.HandlerFunc
	ListSchedules  http.HandlerFunc
	GetSchedule    http.HandlerFunc
	UpdateSchedule http.HandlerFunc
	ToggleSchedule http.HandlerFunc
	DeleteSchedule http.HandlerFunc

	StartRecording  http.HandlerFunc
	StopRecording   http.HandlerFunc
	GetRecording    http.HandlerFunc
	RecordingStatus http.HandlerFunc
	ListRecordings  http.HandlerFunc
	ListOngoing     http.HandlerFunc

	CreateBatch http.HandlerFunc
	GetBatch    http.HandlerFunc
	StopBatch   http.HandlerFunc

	CaptureStatus http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/stations", orNotImplemented(deps.CreateStation))
		r.Get("/api/v1/stations", orNotImplemented(deps.ListStations))
		r.Get("/api/v1/stations/{stationID}", orNotImplemented(deps.GetStation))
		r.Put("/api/v1/stations/{stationID}", orNotImplemented(deps.UpdateStation))
		r.Delete("/api/v1/stations/{stationID}", orNotImplemented(deps.DeleteStation))

		r.Post("/api/v1/schedules", orNotImplemented(deps.CreateSchedule))
		r.Get("/api/v1/schedules", orNotImplemented(deps.ListSchedules))
		r.Get("/api/v1/schedules/{scheduleID}", orNotImplemented(deps.GetSchedule))
		r.Put("/api/v1/schedules/{scheduleID}", orNotImplemented(deps.UpdateSchedule))
		r.Post("/api/v1/schedules/{scheduleID}/toggle", orNotImplemented(deps.ToggleSchedule))
		r.Delete("/api/v1/schedules/{scheduleID}", orNotImplemented(deps.DeleteSchedule))

		r.Post("/api/v1/recordings", orNotImplemented(deps.StartRecording))
		r.Get("/api/v1/recordings", orNotImplemented(deps.ListRecordings))
		r.Get("/api/v1/recordings/ongoing", orNotImplemented(deps.ListOngoing))
		r.Get("/api/v1/recordings/{jobID}", orNotImplemented(deps.GetRecording))
		r.Get("/api/v1/recordings/{jobID}/status", orNotImplemented(deps.RecordingStatus))
		r.Delete("/api/v1/recordings/{jobID}", orNotImplemented(deps.StopRecording))

		r.Post("/api/v1/batches", orNotImplemented(deps.CreateBatch))
		r.Get("/api/v1/batches/{batchID}", orNotImplemented(deps.GetBatch))
		r.Delete("/api/v1/batches/{batchID}", orNotImplemented(deps.StopBatch))

		r.Post("/api/v1/capture/status", orNotImplemented(deps.CaptureStatus))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
