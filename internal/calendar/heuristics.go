package calendar

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/locapp/backend/internal/storage/models"
)

// Guest name bounds, in characters. A candidate must be longer than
// MinGuestNameLen and shorter than MaxGuestNameLen.
const (
	MinGuestNameLen = 1
	MaxGuestNameLen = 50
)

// GenericSummaryTerms mark a summary as a placeholder rather than a name.
var GenericSummaryTerms = []string{
	"reserved",
	"blocked",
	"unavailable",
	"not available",
	"réservé",
	"bloqué",
	"indisponible",
}

// guestNameRule extracts a guest name candidate from a summary or description.
type guestNameRule struct {
	name    string
	pattern *regexp.Regexp
}

func (r guestNameRule) extract(text string) (string, bool) {
	m := r.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// guestNameRules are evaluated in order; the first acceptable match wins.
var guestNameRules = []guestNameRule{
	{"reserved-prefix", regexp.MustCompile(`(?i)(?:Reserved|Réservé)\s*[-:]\s*(.+?)(?:\s*\(|$)`)},
	{"guest-prefix", regexp.MustCompile(`(?i)(?:Guest|Client|Voyageur)\s*[-:]\s*(.+?)(?:\s*\(|$)`)},
	{"platform-suffix", regexp.MustCompile(`(?i)^(.+?)\s*[-–]\s*(?:Airbnb|Booking|VRBO)`)},
	{"reservation-of", regexp.MustCompile(`(?i)(?:Reservation|Réservation)\s+(?:de\s+)?(.+?)(?:\s*[-–]|$)`)},
}

func acceptableGuestName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > MinGuestNameLen && n < MaxGuestNameLen
}

// ExtractGuestName recovers a guest name from an event's text. The rules are
// applied to the summary first, then to the description. When none match,
// a summary that reads like a plain name is used as-is.
func ExtractGuestName(summary, description string) *string {
	for _, text := range []string{summary, description} {
		if text == "" {
			continue
		}
		for _, rule := range guestNameRules {
			name, ok := rule.extract(text)
			if ok && acceptableGuestName(name) {
				return &name
			}
		}
	}

	if looksLikeName(summary) {
		return &summary
	}
	return nil
}

func looksLikeName(summary string) bool {
	if summary == "" || utf8.RuneCountInString(summary) >= MaxGuestNameLen {
		return false
	}
	if strings.HasPrefix(summary, "http") || strings.HasPrefix(summary, "www") {
		return false
	}
	lower := strings.ToLower(summary)
	for _, term := range GenericSummaryTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// platformKeywords lists detection keywords in priority order.
var platformKeywords = []struct {
	kind     models.PlatformKind
	keywords []string
}{
	{models.PlatformAirbnb, []string{"airbnb"}},
	{models.PlatformBooking, []string{"booking"}},
	{models.PlatformVRBO, []string{"vrbo", "homeaway"}},
	{models.PlatformExpedia, []string{"expedia"}},
	{models.PlatformAbritel, []string{"abritel"}},
}

// DetectPlatform finds the booking platform mentioned in an event's summary,
// description or UID. It returns the zero Platform when none is recognised.
func DetectPlatform(summary, description, uid string) models.Platform {
	text := strings.ToLower(summary + " " + description + " " + uid)
	for _, p := range platformKeywords {
		for _, kw := range p.keywords {
			if strings.Contains(text, kw) {
				return models.KnownPlatform(p.kind)
			}
		}
	}
	return models.Platform{}
}

// ParseStatus maps an iCal STATUS value. Only CANCELLED blocks nothing;
// TENTATIVE, CONFIRMED, missing and unknown values all count as confirmed.
func ParseStatus(status string) models.EventStatus {
	if strings.EqualFold(strings.TrimSpace(status), "CANCELLED") {
		return models.EventStatusCancelled
	}
	return models.EventStatusConfirmed
}
