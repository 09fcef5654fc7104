package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/wavecap/wavecap/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TickReporter exposes the scheduler's last due-check time.
type TickReporter interface {
	LastTick() time.Time
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Degraded dependencies are reported but never fail the endpoint; the
// process being up is the signal.
func NewHealthHandler(db, redis Pinger, ticks TickReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := db.Ping(ctx); err != nil {
			dbStatus = "unreachable"
		}
		redisStatus := "ok"
		if err := redis.Ping(ctx); err != nil {
			redisStatus = "unreachable"
		}

		body := struct {
			Status   string     `json:"status"`
			Database string     `json:"database"`
			Redis    string     `json:"redis"`
			LastTick *time.Time `json:"last_tick,omitempty"`
		}{
			Status:   "ok",
			Database: dbStatus,
			Redis:    redisStatus,
		}
		if ticks != nil {
			if last := ticks.LastTick(); !last.IsZero() {
				body.LastTick = &last
			}
		}
		if dbStatus != "ok" || redisStatus != "ok" {
			body.Status = "degraded"
		}
		response.JSON(w, body)
	}
}
