// Package calendar imports, reconciles and exports iCal booking calendars.
package calendar

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/locapp/backend/internal/storage/models"
)

// DefaultSummary replaces a missing SUMMARY.
const DefaultSummary = "Réservation"

// ParsedEvent is a booking extracted from a feed, before it is bound to a
// property and source.
type ParsedEvent struct {
	UID         string
	Summary     string
	StartDate   time.Time
	EndDate     time.Time
	GuestName   *string
	Platform    models.Platform
	Status      models.EventStatus
	Description string
}

// Parser decodes iCal text into booking events.
type Parser struct{}

// NewParser creates a new iCal parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse validates the whole document and returns a sequence over its
// events. A malformed document yields an ErrKindParse error. Events that
// cannot be interpreted are logged and left out of the sequence.
func (p *Parser) Parse(raw string) (iter.Seq[ParsedEvent], error) {
	if strings.TrimSpace(raw) == "" {
		return nil, parseError(errors.New("empty calendar"))
	}

	cal, err := ical.ParseCalendarWithOptions(
		strings.NewReader(raw),
		ical.WithUnknownPropertyHandler(ical.AcceptUnknownPropertyHandler),
	)
	if err != nil {
		return nil, parseError(err)
	}

	vevents := cal.Events()
	return func(yield func(ParsedEvent) bool) {
		for _, ve := range vevents {
			ev, err := parseEvent(ve)
			if err != nil {
				log.Printf("Skipping calendar event %q: %v", ev.UID, err)
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}, nil
}

// ParseAll is Parse collected into a slice.
func (p *Parser) ParseAll(raw string) ([]ParsedEvent, error) {
	seq, err := p.Parse(raw)
	if err != nil {
		return nil, err
	}
	var events []ParsedEvent
	for ev := range seq {
		events = append(events, ev)
	}
	return events, nil
}

// parseEvent always returns the UID it found so skipped events can be logged.
func parseEvent(ve *ical.VEvent) (ParsedEvent, error) {
	ev := ParsedEvent{
		UID:         propValue(ve, ical.ComponentPropertyUniqueId),
		Summary:     DefaultSummary,
		Description: propValue(ve, ical.ComponentPropertyDescription),
	}
	if prop := ve.GetProperty(ical.ComponentPropertySummary); prop != nil {
		ev.Summary = prop.Value
	}

	start, err := eventDate(ve, ical.ComponentPropertyDtStart)
	if err != nil {
		return ev, fmt.Errorf("reading DTSTART: %w", err)
	}
	ev.StartDate = start

	dtend := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if dtend == nil {
		ev.EndDate = start.AddDate(0, 0, 1)
	} else {
		end, err := eventDate(ve, ical.ComponentPropertyDtEnd)
		if err != nil {
			return ev, fmt.Errorf("reading DTEND: %w", err)
		}
		ev.EndDate = end
		// a timed block within a single day still blocks that day
		if end.Equal(start) && strings.Contains(dtend.Value, "T") {
			ev.EndDate = start.AddDate(0, 0, 1)
		}
	}
	if !ev.StartDate.Before(ev.EndDate) {
		return ev, fmt.Errorf("end %s is not after start %s",
			ev.EndDate.Format(models.DateLayout), ev.StartDate.Format(models.DateLayout))
	}

	ev.GuestName = ExtractGuestName(ev.Summary, ev.Description)
	ev.Platform = DetectPlatform(ev.Summary, ev.Description, ev.UID)
	ev.Status = ParseStatus(propValue(ve, ical.ComponentPropertyStatus))

	return ev, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// eventDate reads a DTSTART/DTEND as a calendar date. Date-times keep the
// date they fall on in their own zone. Values whose TZID cannot be loaded
// fall back to their literal date digits.
func eventDate(ve *ical.VEvent, prop ical.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, ical.ErrorPropertyNotFound
	}

	var (
		t   time.Time
		err error
	)
	switch prop {
	case ical.ComponentPropertyDtStart:
		t, err = ve.GetStartAt()
	default:
		t, err = ve.GetEndAt()
	}
	if err != nil {
		if len(p.Value) < 8 {
			return time.Time{}, err
		}
		lit, litErr := time.Parse("20060102", p.Value[:8])
		if litErr != nil {
			return time.Time{}, err
		}
		return lit, nil
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
