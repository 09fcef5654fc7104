package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecurrenceNone   = "none"
	RecurrenceDaily  = "daily"
	RecurrenceWeekly = "weekly"
)

const (
	ScheduleActive   = "active"
	ScheduleInactive = "inactive"
)

// Schedule is a declared recording intent: a station, a same-day time
// window, and a recurrence. A schedule never transitions on its own;
// firing creates a Job and leaves the schedule untouched.
type Schedule struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	StationID  uuid.UUID `db:"station_id"  json:"station_id"`
	Recurrence string    `db:"recurrence"  json:"recurrence"`
	AnchorDate time.Time `db:"anchor_date" json:"anchor_date"`
	StartTime  TimeOfDay `db:"start_time"  json:"start_time"`
	EndTime    TimeOfDay `db:"end_time"    json:"end_time"`
	// Weekdays uses 0=Sunday..6=Saturday; non-empty iff Recurrence is weekly.
	Weekdays  []int     `db:"weekdays"   json:"weekdays,omitempty"`
	Status    string    `db:"status"     json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasWeekday reports whether d is in the schedule's weekday set.
func (s *Schedule) HasWeekday(d time.Weekday) bool {
	for _, wd := range s.Weekdays {
		if wd == int(d) {
			return true
		}
	}
	return false
}
