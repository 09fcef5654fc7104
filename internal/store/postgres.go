package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavecap/wavecap/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
		&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Stations ---

const stationColumns = `id, name, stream_url, city, state, bitrate_kbps, output_format, favorite, created_at, updated_at`

func scanStation(row pgx.Row) (*models.Station, error) {
	var st models.Station
	err := row.Scan(&st.ID, &st.Name, &st.StreamURL, &st.City, &st.State,
		&st.BitrateKbps, &st.OutputFormat, &st.Favorite, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) CreateStation(ctx context.Context, station *models.Station) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stations (id, name, stream_url, city, state, bitrate_kbps, output_format, favorite, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		station.ID, station.Name, station.StreamURL, station.City, station.State,
		station.BitrateKbps, station.OutputFormat, station.Favorite, station.CreatedAt, station.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create station: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	st, err := scanStation(s.pool.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) UpdateStation(ctx context.Context, station *models.Station) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE stations SET name = $2, stream_url = $3, city = $4, state = $5,
		   bitrate_kbps = $6, output_format = $7, favorite = $8, updated_at = NOW()
		 WHERE id = $1`,
		station.ID, station.Name, station.StreamURL, station.City, station.State,
		station.BitrateKbps, station.OutputFormat, station.Favorite)
	if err != nil {
		return fmt.Errorf("update station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteStation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStations returns stations matching the filter in a deterministic
// order (name, then id) so batch fan-out attempts are reproducible.
func (s *PostgresStore) ListStations(ctx context.Context, filter StationFilter) ([]*models.Station, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argIdx))
		args = append(args, filter.State)
		argIdx++
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("city = $%d", argIdx))
		args = append(args, filter.City)
		argIdx++
	}

	query := `SELECT ` + stationColumns + ` FROM stations WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY name, id`
	if filter.Cap > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Cap)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []*models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// --- Schedules ---

const scheduleColumns = `id, station_id, recurrence, anchor_date, start_time, end_time, weekdays, status, created_at, updated_at`

func scanSchedule(row pgx.Row) (*models.Schedule, error) {
	var sc models.Schedule
	err := row.Scan(&sc.ID, &sc.StationID, &sc.Recurrence, &sc.AnchorDate,
		&sc.StartTime, &sc.EndTime, &sc.Weekdays, &sc.Status, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *PostgresStore) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO schedules (id, station_id, recurrence, anchor_date, start_time, end_time, weekdays, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schedule.ID, schedule.StationID, schedule.Recurrence, schedule.AnchorDate,
		schedule.StartTime, schedule.EndTime, schedule.Weekdays, schedule.Status,
		schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	sc, err := scanSchedule(s.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sc, nil
}

// UpdateSchedule replaces the window and recurrence fields in full.
func (s *PostgresStore) UpdateSchedule(ctx context.Context, schedule *models.Schedule) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE schedules SET station_id = $2, recurrence = $3, anchor_date = $4,
		   start_time = $5, end_time = $6, weekdays = $7, status = $8, updated_at = NOW()
		 WHERE id = $1`,
		schedule.ID, schedule.StationID, schedule.Recurrence, schedule.AnchorDate,
		schedule.StartTime, schedule.EndTime, schedule.Weekdays, schedule.Status)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetScheduleStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE schedules SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set schedule status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSchedules(ctx context.Context) ([]*models.Schedule, error) {
	return s.querySchedules(ctx,
		`SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at DESC`)
}

func (s *PostgresStore) ListActiveSchedules(ctx context.Context) ([]*models.Schedule, error) {
	return s.querySchedules(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE status = $1 ORDER BY created_at`,
		models.ScheduleActive)
}

func (s *PostgresStore) querySchedules(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// --- Jobs ---

const jobColumns = `id, station_id, schedule_id, batch_id, kind, duration_minutes, status,
	error_message, file_name, file_url, file_size_mb, scheduled_for, last_report_at,
	started_at, completed_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.StationID, &j.ScheduleID, &j.BatchID, &j.Kind,
		&j.DurationMinutes, &j.Status, &j.ErrorMessage, &j.FileName, &j.FileURL,
		&j.FileSizeMB, &j.ScheduledFor, &j.LastReportAt, &j.StartedAt, &j.CompletedAt,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, station_id, schedule_id, batch_id, kind, duration_minutes, status,
		   scheduled_for, last_report_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.StationID, job.ScheduleID, job.BatchID, job.Kind, job.DurationMinutes,
		job.Status, job.ScheduledFor, job.LastReportAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.StationID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("station_id = $%d", argIdx))
		args = append(args, filter.StationID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, filter.Kind)
		argIdx++
	}
	if filter.BatchID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", argIdx))
		args = append(args, filter.BatchID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM jobs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT `+jobColumns+` FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

func (s *PostgresStore) ListNonTerminalJobs(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status NOT IN ($1, $2) ORDER BY created_at`,
		models.JobStatusCompleted, models.JobStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("list non-terminal jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// FindJobForDay looks up the job a schedule fired for a given occurrence
// date. Used as the due-check dedup so a schedule fires at most once per
// calendar day.
func (s *PostgresStore) FindJobForDay(ctx context.Context, scheduleID uuid.UUID, day time.Time) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE schedule_id = $1 AND scheduled_for = $2 LIMIT 1`,
		scheduleID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job for day: %w", err)
	}
	return j, nil
}

// UpdateJobStatus applies a status transition, rejecting illegal ones.
// Every update also bumps last_report_at, which drives lost-contact
// reconciliation.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := ApplyJobUpdateOptions(opts)

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	if !models.CanTransition(currentStatus, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, last_report_at = $3, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.JobStatusRecording {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.FileName != nil {
		query += fmt.Sprintf(", file_name = $%d", argIdx)
		args = append(args, *params.FileName)
		argIdx++
	}
	if params.FileURL != nil {
		query += fmt.Sprintf(", file_url = $%d", argIdx)
		args = append(args, *params.FileURL)
		argIdx++
	}
	if params.FileSizeMB != nil {
		query += fmt.Sprintf(", file_size_mb = $%d", argIdx)
		args = append(args, *params.FileSizeMB)
		argIdx++
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// TouchJob bumps last_report_at without a status transition; used when the
// agent reports a status the job is already in.
func (s *PostgresStore) TouchJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET last_report_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Batches ---

// CreateBatchGraph persists a batch with its child schedules and jobs in a
// single transaction. Partial persistence never survives: any failure rolls
// the whole batch back.
func (s *PostgresStore) CreateBatchGraph(ctx context.Context, batch *models.Batch, schedules []*models.Schedule, jobs []*models.Job) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO batches (id, filter_state, filter_city, station_cap, recurrence, anchor_date, start_time, end_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		batch.ID, batch.FilterState, batch.FilterCity, batch.StationCap, batch.Recurrence,
		batch.AnchorDate, batch.StartTime, batch.EndTime, batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	for _, sc := range schedules {
		_, err = tx.Exec(ctx,
			`INSERT INTO schedules (id, station_id, recurrence, anchor_date, start_time, end_time, weekdays, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sc.ID, sc.StationID, sc.Recurrence, sc.AnchorDate, sc.StartTime, sc.EndTime,
			sc.Weekdays, sc.Status, sc.CreatedAt, sc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create batch schedule: %w", err)
		}
	}

	for _, j := range jobs {
		_, err = tx.Exec(ctx,
			`INSERT INTO jobs (id, station_id, schedule_id, batch_id, kind, duration_minutes, status,
			   scheduled_for, last_report_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			j.ID, j.StationID, j.ScheduleID, j.BatchID, j.Kind, j.DurationMinutes,
			j.Status, j.ScheduledFor, j.LastReportAt, j.CreatedAt, j.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create batch job: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendBatchItem(ctx context.Context, item *models.BatchItem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO batch_items (batch_id, job_id, station_id, position, started, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.BatchID, item.JobID, item.StationID, item.Position, item.Started, item.ErrorMessage)
	if err != nil {
		return fmt.Errorf("append batch item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, []*models.BatchItem, error) {
	var b models.Batch
	err := s.pool.QueryRow(ctx,
		`SELECT id, filter_state, filter_city, station_cap, recurrence, anchor_date, start_time, end_time, created_at
		 FROM batches WHERE id = $1`, id,
	).Scan(&b.ID, &b.FilterState, &b.FilterCity, &b.StationCap, &b.Recurrence,
		&b.AnchorDate, &b.StartTime, &b.EndTime, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get batch: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT batch_id, job_id, station_id, position, started, error_message
		 FROM batch_items WHERE batch_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get batch items: %w", err)
	}
	defer rows.Close()

	var items []*models.BatchItem
	for rows.Next() {
		var it models.BatchItem
		if err := rows.Scan(&it.BatchID, &it.JobID, &it.StationID, &it.Position,
			&it.Started, &it.ErrorMessage); err != nil {
			return nil, nil, fmt.Errorf("scan batch item: %w", err)
		}
		items = append(items, &it)
	}
	return &b, items, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
