package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// stubJobFinder remembers which (schedule, day) pairs already have a job.
type stubJobFinder struct {
	days map[string]bool
	err  error
}

func newStubJobFinder() *stubJobFinder {
	return &stubJobFinder{days: make(map[string]bool)}
}

func (f *stubJobFinder) key(id uuid.UUID, day time.Time) string {
	return id.String() + "|" + day.Format("2006-01-02")
}

func (f *stubJobFinder) add(id uuid.UUID, day time.Time) {
	f.days[f.key(id, day)] = true
}

func (f *stubJobFinder) FindJobForDay(ctx context.Context, scheduleID uuid.UUID, day time.Time) (*models.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.days[f.key(scheduleID, day)] {
		return &models.Job{ID: uuid.New(), ScheduleID: &scheduleID}, nil
	}
	return nil, store.ErrNotFound
}

func dailySchedule(start, end models.TimeOfDay) *models.Schedule {
	return &models.Schedule{
		ID:         uuid.New(),
		StationID:  uuid.New(),
		Recurrence: models.RecurrenceDaily,
		StartTime:  start,
		EndTime:    end,
		Status:     models.ScheduleActive,
	}
}

func TestValidateSchedule(t *testing.T) {
	anchor := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		s       *models.Schedule
		wantErr error
	}{
		{
			name: "valid daily",
			s:    dailySchedule(8*60, 9*60),
		},
		{
			name: "valid one-shot",
			s: &models.Schedule{
				Recurrence: models.RecurrenceNone,
				AnchorDate: anchor,
				StartTime:  8 * 60, EndTime: 9 * 60,
			},
		},
		{
			name: "valid weekly",
			s: &models.Schedule{
				Recurrence: models.RecurrenceWeekly,
				Weekdays:   []int{1, 3},
				StartTime:  8 * 60, EndTime: 9 * 60,
			},
		},
		{
			name: "one-shot without anchor",
			s: &models.Schedule{
				Recurrence: models.RecurrenceNone,
				StartTime:  8 * 60, EndTime: 9 * 60,
			},
			wantErr: ErrInvalidRecurrence,
		},
		{
			name: "weekly without weekdays",
			s: &models.Schedule{
				Recurrence: models.RecurrenceWeekly,
				StartTime:  8 * 60, EndTime: 9 * 60,
			},
			wantErr: ErrInvalidRecurrence,
		},
		{
			name: "weekday out of range",
			s: &models.Schedule{
				Recurrence: models.RecurrenceWeekly,
				Weekdays:   []int{7},
				StartTime:  8 * 60, EndTime: 9 * 60,
			},
			wantErr: ErrInvalidRecurrence,
		},
		{
			name: "unknown recurrence",
			s: &models.Schedule{
				Recurrence: "monthly",
				StartTime:  8 * 60, EndTime: 9 * 60,
			},
			wantErr: ErrInvalidRecurrence,
		},
		{
			name:    "inverted window",
			s:       dailySchedule(9*60, 8*60),
			wantErr: ErrInvalidWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsDue_Daily(t *testing.T) {
	finder := newStubJobFinder()
	eval := NewEvaluator(finder, time.UTC)
	s := dailySchedule(8*60, 9*60)
	ctx := context.Background()

	due, err := eval.IsDue(ctx, s, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)

	// Before the window
	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 14, 7, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)

	// Start is inclusive, end exclusive
	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)

	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_OncePerDay(t *testing.T) {
	finder := newStubJobFinder()
	eval := NewEvaluator(finder, time.UTC)
	s := dailySchedule(8*60, 9*60)
	ctx := context.Background()

	now := time.Date(2026, 3, 14, 8, 10, 0, 0, time.UTC)
	due, err := eval.IsDue(ctx, s, now)
	require.NoError(t, err)
	require.True(t, due)

	// A job for today silences every later tick inside the window
	finder.add(s.ID, OccurrenceDate(s, now, time.UTC))
	for _, minute := range []int{11, 30, 59} {
		due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 14, 8, minute, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, due, "minute %d", minute)
	}

	// The next day fires again
	due, err = eval.IsDue(ctx, s, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsDue_Inactive(t *testing.T) {
	eval := NewEvaluator(newStubJobFinder(), time.UTC)
	s := dailySchedule(8*60, 9*60)
	s.Status = models.ScheduleInactive

	due, err := eval.IsDue(context.Background(), s, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_Weekly(t *testing.T) {
	finder := newStubJobFinder()
	eval := NewEvaluator(finder, time.UTC)
	s := dailySchedule(8*60, 9*60)
	s.Recurrence = models.RecurrenceWeekly
	s.Weekdays = []int{int(time.Saturday)}
	ctx := context.Background()

	// 2026-03-14 is a Saturday
	due, err := eval.IsDue(ctx, s, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)

	// Sunday is not in the set
	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_OneShot(t *testing.T) {
	finder := newStubJobFinder()
	eval := NewEvaluator(finder, time.UTC)
	s := &models.Schedule{
		ID:         uuid.New(),
		StationID:  uuid.New(),
		Recurrence: models.RecurrenceNone,
		AnchorDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		StartTime:  14 * 60,
		EndTime:    15 * 60,
		Status:     models.ScheduleActive,
	}
	ctx := context.Background()

	due, err := eval.IsDue(ctx, s, time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)

	// Wrong day, even at the right wall-clock time
	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)

	// After the window closed
	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_AnchorGatesRecurring(t *testing.T) {
	finder := newStubJobFinder()
	eval := NewEvaluator(finder, time.UTC)
	s := dailySchedule(8*60, 9*60)
	s.AnchorDate = time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	due, err := eval.IsDue(ctx, s, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)

	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsDue_LocalTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	finder := newStubJobFinder()
	eval := NewEvaluator(finder, loc)
	s := dailySchedule(8*60, 9*60)
	ctx := context.Background()

	// 11:30 UTC is 08:30 in Sao Paulo (UTC-3)
	due, err := eval.IsDue(ctx, s, time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)

	// 08:30 UTC is 05:30 local, outside the window
	due, err = eval.IsDue(ctx, s, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_DedupLookupError(t *testing.T) {
	finder := newStubJobFinder()
	finder.err = context.DeadlineExceeded
	eval := NewEvaluator(finder, time.UTC)
	s := dailySchedule(8*60, 9*60)

	_, err := eval.IsDue(context.Background(), s, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestOccurrenceDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	oneShot := &models.Schedule{
		Recurrence: models.RecurrenceNone,
		AnchorDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	daily := &models.Schedule{Recurrence: models.RecurrenceDaily}

	now := time.Date(2026, 3, 15, 1, 30, 0, 0, time.UTC) // still 2026-03-14 in Sao Paulo

	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), OccurrenceDate(oneShot, now, loc))
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), OccurrenceDate(daily, now, loc))
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), OccurrenceDate(daily, now, time.UTC))
}

func TestNextDueInstant(t *testing.T) {
	loc := time.UTC

	t.Run("one-shot before anchor", func(t *testing.T) {
		s := &models.Schedule{
			Recurrence: models.RecurrenceNone,
			AnchorDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			StartTime:  14 * 60, EndTime: 15 * 60,
			Status: models.ScheduleActive,
		}
		next, ok := NextDueInstant(s, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), loc)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC), next)
	})

	t.Run("spent one-shot", func(t *testing.T) {
		s := &models.Schedule{
			Recurrence: models.RecurrenceNone,
			AnchorDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			StartTime:  14 * 60, EndTime: 15 * 60,
			Status: models.ScheduleActive,
		}
		_, ok := NextDueInstant(s, time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC), loc)
		assert.False(t, ok)
	})

	t.Run("daily rolls to tomorrow", func(t *testing.T) {
		s := dailySchedule(8*60, 9*60)
		next, ok := NextDueInstant(s, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), loc)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), next)
	})

	t.Run("weekly lands on next listed weekday", func(t *testing.T) {
		s := dailySchedule(8*60, 9*60)
		s.Recurrence = models.RecurrenceWeekly
		s.Weekdays = []int{int(time.Wednesday)}
		// 2026-03-14 is a Saturday; next Wednesday is the 18th
		next, ok := NextDueInstant(s, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), loc)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC), next)
	})

	t.Run("inactive never fires", func(t *testing.T) {
		s := dailySchedule(8*60, 9*60)
		s.Status = models.ScheduleInactive
		_, ok := NextDueInstant(s, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), loc)
		assert.False(t, ok)
	})
}
