package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// ErrInvalidRecurrence is returned for recurrence settings that cannot fire,
// such as a weekly schedule with an empty weekday set.
var ErrInvalidRecurrence = errors.New("invalid recurrence")

// JobFinder is the store lookup used to dedup one job per schedule per
// calendar day.
type JobFinder interface {
	FindJobForDay(ctx context.Context, scheduleID uuid.UUID, day time.Time) (*models.Job, error)
}

// Evaluator decides whether a schedule is due at a given instant. The
// window and weekday checks are pure; the per-day dedup consults existing
// jobs so repeated ticks inside one due window fire at most once.
type Evaluator struct {
	jobs JobFinder
	loc  *time.Location
}

func NewEvaluator(jobs JobFinder, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{jobs: jobs, loc: loc}
}

// ValidateSchedule checks window and recurrence settings. It rejects weekly
// schedules without weekdays, unknown recurrence kinds, one-shot schedules
// without an anchor date, and invalid windows.
func ValidateSchedule(s *models.Schedule) error {
	switch s.Recurrence {
	case models.RecurrenceNone:
		if s.AnchorDate.IsZero() {
			return fmt.Errorf("%w: one-shot schedules require an anchor date", ErrInvalidRecurrence)
		}
	case models.RecurrenceDaily:
	case models.RecurrenceWeekly:
		if len(s.Weekdays) == 0 {
			return fmt.Errorf("%w: weekly schedules require at least one weekday", ErrInvalidRecurrence)
		}
		for _, wd := range s.Weekdays {
			if wd < 0 || wd > 6 {
				return fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidRecurrence, wd)
			}
		}
	default:
		return fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalidRecurrence, s.Recurrence)
	}

	_, err := ResolveWindow(s.StartTime, s.EndTime)
	return err
}

// OccurrenceDate is the calendar date a firing at now counts against: the
// anchor date for one-shots, the local calendar day otherwise. Both the
// due-check dedup and job creation key on this, so they must agree.
func OccurrenceDate(s *models.Schedule, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if s.Recurrence == models.RecurrenceNone {
		return dateOnly(s.AnchorDate)
	}
	return dateOnly(now.In(loc))
}

// IsDue reports whether the schedule should fire at now. A schedule fires at
// most one job per calendar day per station; existing jobs are consulted
// before declaring due.
func (e *Evaluator) IsDue(ctx context.Context, s *models.Schedule, now time.Time) (bool, error) {
	if s.Status != models.ScheduleActive {
		return false, nil
	}
	dur, err := ResolveWindow(s.StartTime, s.EndTime)
	if err != nil {
		return false, err
	}

	local := now.In(e.loc)

	switch s.Recurrence {
	case models.RecurrenceNone:
		anchor := AnchorInstant(s.AnchorDate, s.StartTime, e.loc)
		end := anchor.Add(time.Duration(dur) * time.Minute)
		if now.Before(anchor) || !now.Before(end) {
			return false, nil
		}

	case models.RecurrenceDaily, models.RecurrenceWeekly:
		if s.Recurrence == models.RecurrenceWeekly && !s.HasWeekday(local.Weekday()) {
			return false, nil
		}
		if !s.AnchorDate.IsZero() && !sameOrAfterDate(local, s.AnchorDate) {
			return false, nil
		}
		clock := models.TimeOfDay(local.Hour()*60 + local.Minute())
		if clock < s.StartTime || clock >= s.EndTime {
			return false, nil
		}

	default:
		return false, fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalidRecurrence, s.Recurrence)
	}

	_, err = e.jobs.FindJobForDay(ctx, s.ID, OccurrenceDate(s, now, e.loc))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("due-check dedup lookup: %w", err)
}

// NextDueInstant returns the smallest instant strictly after `after` at
// which the schedule's window opens, for display and poll-frequency hints.
// The second return is false when no occurrence remains (a spent one-shot).
// Per-day dedup is not consulted here; IsDue remains the authority.
func NextDueInstant(s *models.Schedule, after time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if s.Status != models.ScheduleActive {
		return time.Time{}, false
	}

	switch s.Recurrence {
	case models.RecurrenceNone:
		anchor := AnchorInstant(s.AnchorDate, s.StartTime, loc)
		if after.Before(anchor) {
			return anchor, true
		}
		return time.Time{}, false

	case models.RecurrenceDaily, models.RecurrenceWeekly:
		scanFrom := after.In(loc)
		if !s.AnchorDate.IsZero() {
			if anchor := AnchorInstant(s.AnchorDate, s.StartTime, loc); anchor.After(after) {
				scanFrom = anchor
			}
		}
		for i := 0; i < 8; i++ {
			candidate := time.Date(scanFrom.Year(), scanFrom.Month(), scanFrom.Day()+i,
				s.StartTime.Hour(), s.StartTime.Minute(), 0, 0, loc)
			if !candidate.After(after) {
				continue
			}
			if !s.AnchorDate.IsZero() && !sameOrAfterDate(candidate, s.AnchorDate) {
				continue
			}
			if s.Recurrence == models.RecurrenceWeekly && !s.HasWeekday(candidate.Weekday()) {
				continue
			}
			return candidate, true
		}
	}
	return time.Time{}, false
}
