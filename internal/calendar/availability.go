package calendar

import (
	"context"
	"time"

	"github.com/locapp/backend/internal/storage/models"
)

// EventLister reads the stored events of a property overlapping [from, to).
type EventLister interface {
	ListEvents(ctx context.Context, propertyID string, from, to *time.Time) ([]models.CalendarEvent, error)
}

// AvailabilityChecker answers whether a stay can be booked.
type AvailabilityChecker struct {
	events EventLister
}

// NewAvailabilityChecker creates a new availability checker.
func NewAvailabilityChecker(events EventLister) *AvailabilityChecker {
	return &AvailabilityChecker{events: events}
}

// Check reports the confirmed events overlapping the stay [checkIn, checkOut).
// A stay ending on the day another starts does not conflict.
func (c *AvailabilityChecker) Check(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (*models.Availability, error) {
	checkIn, checkOut = truncateDay(checkIn), truncateDay(checkOut)
	if !checkIn.Before(checkOut) {
		return nil, validationError("check_out (%s) must be after check_in (%s)",
			checkOut.Format(models.DateLayout), checkIn.Format(models.DateLayout))
	}

	events, err := c.events.ListEvents(ctx, propertyID, &checkIn, &checkOut)
	if err != nil {
		return nil, asCalendarError(err)
	}

	conflicts := make([]models.CalendarEvent, 0)
	for _, e := range events {
		if e.Status == models.EventStatusCancelled || !e.Overlaps(checkIn, checkOut) {
			continue
		}
		conflicts = append(conflicts, e)
	}

	return &models.Availability{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
