package schedule

import (
	"errors"
	"time"

	"github.com/wavecap/wavecap/pkg/models"
)

// ErrInvalidWindow is returned when a time window's end is not strictly
// after its start. Windows never cross midnight.
var ErrInvalidWindow = errors.New("end time must be after start time")

// ResolveWindow converts a same-day wall-clock pair into a duration in
// minutes. It is the single authority for this conversion; other components
// call it rather than re-deriving duration.
func ResolveWindow(start, end models.TimeOfDay) (int, error) {
	if end <= start {
		return 0, ErrInvalidWindow
	}
	return end.Minutes() - start.Minutes(), nil
}

// AnchorInstant composes a calendar date and a start time into the absolute
// instant a one-shot schedule fires, in the given location.
func AnchorInstant(anchorDate time.Time, start models.TimeOfDay, loc *time.Location) time.Time {
	return time.Date(anchorDate.Year(), anchorDate.Month(), anchorDate.Day(),
		start.Hour(), start.Minute(), 0, 0, loc)
}

// dateOnly truncates t to its calendar date in UTC, matching how occurrence
// dates are persisted.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sameOrAfterDate reports whether t's calendar date is on or after d's.
func sameOrAfterDate(t, d time.Time) bool {
	return !dateOnly(t).Before(dateOnly(d))
}
