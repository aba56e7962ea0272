package calendar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locapp/backend/internal/storage/models"
)

// feed assembles a VCALENDAR from VEVENT bodies, one property per line.
func feed(events ...[]string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Airbnb Inc//Hosting Calendar 0.8.8//EN",
	}
	for _, ev := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, ev...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func mustParseAll(t *testing.T, raw string) []ParsedEvent {
	t.Helper()
	events, err := NewParser().ParseAll(raw)
	require.NoError(t, err)
	return events
}

func TestParseAirbnbFeed(t *testing.T) {
	raw := feed(
		[]string{
			"DTSTAMP:20240520T101010Z",
			"DTSTART;VALUE=DATE:20240601",
			"DTEND;VALUE=DATE:20240605",
			"SUMMARY:Jane - Airbnb",
			"UID:abc123@airbnb.com",
		},
		[]string{
			"DTSTART;VALUE=DATE:20240610",
			"DTEND;VALUE=DATE:20240612",
			"SUMMARY:Airbnb (Not available)",
			"UID:def456@airbnb.com",
		},
	)

	events := mustParseAll(t, raw)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "abc123@airbnb.com", first.UID)
	assert.Equal(t, "2024-06-01", first.StartDate.Format(models.DateLayout))
	assert.Equal(t, "2024-06-05", first.EndDate.Format(models.DateLayout))
	require.NotNil(t, first.GuestName)
	assert.Equal(t, "Jane", *first.GuestName)
	assert.Equal(t, models.PlatformAirbnb, first.Platform.Kind)
	assert.Equal(t, models.EventStatusConfirmed, first.Status)

	second := events[1]
	assert.Nil(t, second.GuestName)
	assert.Equal(t, models.PlatformAirbnb, second.Platform.Kind)
}

func TestParseDefaults(t *testing.T) {
	events := mustParseAll(t, feed([]string{
		"DTSTART;VALUE=DATE:20240701",
	}))
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "", ev.UID)
	assert.Equal(t, DefaultSummary, ev.Summary)
	require.NotNil(t, ev.GuestName)
	assert.Equal(t, DefaultSummary, *ev.GuestName)
	assert.True(t, ev.Platform.IsZero())
	assert.Equal(t, "2024-07-02", ev.EndDate.Format(models.DateLayout), "missing DTEND lasts one day")
	assert.Equal(t, models.EventStatusConfirmed, ev.Status)
}

func TestParseSameDayTimedBlock(t *testing.T) {
	events := mustParseAll(t, feed(
		[]string{
			"UID:same-day",
			"DTSTART:20240601T100000Z",
			"DTEND:20240601T120000Z",
			"SUMMARY:Ménage",
		},
		[]string{
			"UID:same-date",
			"DTSTART;VALUE=DATE:20240603",
			"DTEND;VALUE=DATE:20240603",
		},
	))
	require.Len(t, events, 1)
	assert.Equal(t, "same-day", events[0].UID)
	assert.Equal(t, "2024-06-01", events[0].StartDate.Format(models.DateLayout))
	assert.Equal(t, "2024-06-02", events[0].EndDate.Format(models.DateLayout))
}

func TestParseDateTimesBecomeDates(t *testing.T) {
	events := mustParseAll(t, feed(
		[]string{
			"UID:utc",
			"DTSTART:20240801T150000Z",
			"DTEND:20240803T100000Z",
		},
		[]string{
			"UID:zoned",
			"DTSTART;TZID=Europe/Paris:20240805T160000",
			"DTEND;TZID=Europe/Paris:20240807T110000",
		},
		[]string{
			"UID:unknown-zone",
			"DTSTART;TZID=Romance Standard Time:20240810T160000",
			"DTEND;TZID=Romance Standard Time:20240812T110000",
		},
	))
	require.Len(t, events, 3)

	for i, want := range [][2]string{
		{"2024-08-01", "2024-08-03"},
		{"2024-08-05", "2024-08-07"},
		{"2024-08-10", "2024-08-12"},
	} {
		assert.Equal(t, want[0], events[i].StartDate.Format(models.DateLayout), events[i].UID)
		assert.Equal(t, want[1], events[i].EndDate.Format(models.DateLayout), events[i].UID)
		assert.Zero(t, events[i].StartDate.Hour())
	}
}

func TestParseSkipsBadEvents(t *testing.T) {
	events := mustParseAll(t, feed(
		[]string{"UID:no-start", "SUMMARY:Guest - Bob"},
		[]string{"UID:garbage-date", "DTSTART:tomorrow"},
		[]string{"UID:backwards", "DTSTART;VALUE=DATE:20240905", "DTEND;VALUE=DATE:20240901"},
		[]string{"UID:ok", "DTSTART;VALUE=DATE:20240910", "DTEND;VALUE=DATE:20240911"},
	))
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].UID)
}

func TestParseStatusAndEscapes(t *testing.T) {
	events := mustParseAll(t, feed(
		[]string{
			"UID:cancelled",
			"DTSTART;VALUE=DATE:20241001",
			"DTEND;VALUE=DATE:20241003",
			"STATUS:CANCELLED",
			`SUMMARY:Dupont\, Jean`,
			`DESCRIPTION:Line one\nBooking ref 42`,
		},
		[]string{
			"UID:tentative",
			"DTSTART;VALUE=DATE:20241005",
			"DTEND;VALUE=DATE:20241006",
			"STATUS:TENTATIVE",
		},
	))
	require.Len(t, events, 2)

	assert.Equal(t, models.EventStatusCancelled, events[0].Status)
	assert.Equal(t, "Dupont, Jean", events[0].Summary)
	assert.Equal(t, "Line one\nBooking ref 42", events[0].Description)
	assert.Equal(t, models.PlatformBooking, events[0].Platform.Kind)
	assert.Equal(t, models.EventStatusConfirmed, events[1].Status)
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":       "",
		"whitespace":  "  \r\n \n",
		"html":        "<html><body>Not Found</body></html>",
		"no calendar": "BEGIN:VEVENT\r\nEND:VEVENT\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser().Parse(raw)
			require.Error(t, err)
			assert.True(t, IsKind(err, ErrKindParse))
			assert.True(t, strings.HasPrefix(err.Error(), "Erreur de parsing iCal: "), err.Error())
		})
	}
}

func TestParseEmptyCalendar(t *testing.T) {
	events := mustParseAll(t, feed())
	assert.Empty(t, events)
}

func TestParseSequenceIsRestartable(t *testing.T) {
	seq, err := NewParser().Parse(feed(
		[]string{"UID:a", "DTSTART;VALUE=DATE:20241101"},
		[]string{"UID:b", "DTSTART;VALUE=DATE:20241102"},
	))
	require.NoError(t, err)

	var first, second []string
	for ev := range seq {
		first = append(first, ev.UID)
	}
	for ev := range seq {
		second = append(second, ev.UID)
		break
	}
	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, []string{"a"}, second)
}
