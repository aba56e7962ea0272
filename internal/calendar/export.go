package calendar

import (
	"context"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/locapp/backend/internal/storage/models"
)

// Export profile
const (
	ExportProductID = "-//LocApp//Calendar Export//FR"
	exportSummary   = "Réservé"
)

// Exporter renders a property's bookings as a single iCal feed that
// platforms can subscribe to.
type Exporter struct {
	events EventLister
	now    func() time.Time
}

// NewExporter creates a new exporter using the wall clock.
func NewExporter(events EventLister) *Exporter {
	return &Exporter{events: events, now: time.Now}
}

// WithClock returns a copy of the exporter stamping events with now().
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	c := *e
	c.now = now
	return &c
}

// Export builds the feed for a property. Cancelled events are left out.
// name and slug are optional and only shape the calendar name and fallback UIDs.
func (e *Exporter) Export(ctx context.Context, propertyID, name, slug string) ([]byte, error) {
	events, err := e.events.ListEvents(ctx, propertyID, nil, nil)
	if err != nil {
		return nil, asCalendarError(err)
	}

	if name == "" {
		name = "Property"
	}
	owner := slug
	if owner == "" {
		owner = propertyID
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ExportProductID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(name + " - LocApp")

	stamp := e.now()
	for _, ev := range events {
		if ev.Status == models.EventStatusCancelled {
			continue
		}

		uid := ev.UID
		if uid == "" {
			uid = "locapp-" + ev.ID + "-" + owner
		}

		vevent := cal.AddEvent(uid)
		vevent.SetAllDayStartAt(ev.StartDate)
		vevent.SetAllDayEndAt(ev.EndDate)
		vevent.SetSummary(exportSummaryFor(ev))
		vevent.SetStatus(ical.ObjectStatusConfirmed)
		vevent.SetTimeTransparency(ical.TransparencyOpaque)
		vevent.SetDtStampTime(stamp)
		vevent.SetCreatedTime(stamp)
		vevent.SetModifiedAt(stamp)
	}

	return []byte(cal.Serialize()), nil
}

func exportSummaryFor(ev models.CalendarEvent) string {
	var parts []string
	if ev.GuestName != nil && *ev.GuestName != "" {
		parts = append(parts, *ev.GuestName)
	}
	if !ev.Platform.IsZero() {
		parts = append(parts, "("+ev.Platform.String()+")")
	}
	if len(parts) == 0 {
		return exportSummary
	}
	return strings.Join(parts, " ")
}
