package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusStarting   = "starting"
	JobStatusRecording  = "recording"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobKindManual    = "manual"
	JobKindScheduled = "scheduled"
	JobKindBatch     = "batch"
)

// Job is a single recording attempt. Jobs are created in starting and end
// in completed or failed; the capture agent reports transitions inward but
// never owns the record.
type Job struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	StationID       uuid.UUID  `db:"station_id"       json:"station_id"`
	ScheduleID      *uuid.UUID `db:"schedule_id"      json:"schedule_id,omitempty"`
	BatchID         *uuid.UUID `db:"batch_id"         json:"batch_id,omitempty"`
	Kind            string     `db:"kind"             json:"kind"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Status          string     `db:"status"           json:"status"`
	ErrorMessage    *string    `db:"error_message"    json:"error_message,omitempty"`
	FileName        *string    `db:"file_name"        json:"file_name,omitempty"`
	FileURL         *string    `db:"file_url"         json:"file_url,omitempty"`
	FileSizeMB      *float64   `db:"file_size_mb"     json:"file_size_mb,omitempty"`
	// ScheduledFor is the occurrence date a scheduled job fired for; used to
	// dedup one job per schedule per calendar day.
	ScheduledFor *time.Time `db:"scheduled_for"  json:"scheduled_for,omitempty"`
	LastReportAt time.Time  `db:"last_report_at" json:"last_report_at"`
	StartedAt    *time.Time `db:"started_at"     json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"   json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"     json:"updated_at"`
}

// IsTerminal reports whether the job has reached a final status.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

var jobTransitions = map[string][]string{
	JobStatusStarting:   {JobStatusRecording, JobStatusCompleted, JobStatusFailed},
	JobStatusRecording:  {JobStatusProcessing, JobStatusCompleted, JobStatusFailed},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed},
}

// CanTransition reports whether from -> to is a legal job status transition.
// starting -> completed covers an operator stop issued before the agent
// acknowledged the start.
func CanTransition(from, to string) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
