package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wavecap/wavecap/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateStation(ctx context.Context, station *models.Station) error
	GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error)
	UpdateStation(ctx context.Context, station *models.Station) error
	DeleteStation(ctx context.Context, id uuid.UUID) error
	ListStations(ctx context.Context, filter StationFilter) ([]*models.Station, error)

	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, schedule *models.Schedule) error
	SetScheduleStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
	ListSchedules(ctx context.Context) ([]*models.Schedule, error)
	ListActiveSchedules(ctx context.Context) ([]*models.Schedule, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	ListNonTerminalJobs(ctx context.Context) ([]*models.Job, error)
	FindJobForDay(ctx context.Context, scheduleID uuid.UUID, day time.Time) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
	TouchJob(ctx context.Context, id uuid.UUID) error

	CreateBatchGraph(ctx context.Context, batch *models.Batch, schedules []*models.Schedule, jobs []*models.Job) error
	AppendBatchItem(ctx context.Context, item *models.BatchItem) error
	GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, []*models.BatchItem, error)
}

// StationFilter selects stations by location with an optional count cap.
type StationFilter struct {
	State string
	City  string
	Cap   int
}

type JobFilter struct {
	StationID uuid.UUID
	Status    string
	Kind      string
	BatchID   uuid.UUID
	Page      int
	Limit     int
}

// JobUpdate is the resolved form of a set of JobUpdateOptions: the optional
// columns a status transition may carry.
type JobUpdate struct {
	ErrorMessage *string
	FileName     *string
	FileURL      *string
	FileSizeMB   *float64
}

type JobUpdateOption func(*JobUpdate)

// ApplyJobUpdateOptions folds opts into a JobUpdate. Exposed so test
// doubles can honor the same options the Postgres store does.
func ApplyJobUpdateOptions(opts []JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.ErrorMessage = &msg
	}
}

func WithFile(name, url string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.FileName = &name
		p.FileURL = &url
	}
}

func WithFileSizeMB(size float64) JobUpdateOption {
	return func(p *JobUpdate) {
		p.FileSizeMB = &size
	}
}
