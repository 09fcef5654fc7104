package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch records one mass-recording request: the station selection filter
// used and the window/recurrence applied to every matched station. It is
// never mutated after creation except to append per-station outcomes.
type Batch struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	FilterState string    `db:"filter_state" json:"filter_state"`
	FilterCity  *string   `db:"filter_city"  json:"filter_city,omitempty"`
	StationCap  *int      `db:"station_cap"  json:"station_cap,omitempty"`
	Recurrence  string    `db:"recurrence"   json:"recurrence"`
	AnchorDate  time.Time `db:"anchor_date"  json:"anchor_date"`
	StartTime   TimeOfDay `db:"start_time"   json:"start_time"`
	EndTime     TimeOfDay `db:"end_time"     json:"end_time"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// BatchItem is the per-station outcome of a batch start attempt. Position
// preserves catalog iteration order.
type BatchItem struct {
	BatchID      uuid.UUID `db:"batch_id"      json:"batch_id"`
	JobID        uuid.UUID `db:"job_id"        json:"job_id"`
	StationID    uuid.UUID `db:"station_id"    json:"station_id"`
	Position     int       `db:"position"      json:"position"`
	Started      bool      `db:"started"       json:"started"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
}
