package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// EventStatus is the reconciled state of a calendar event.
type EventStatus string

// EventStatus values
const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCancelled EventStatus = "cancelled"
)

// ParseEventStatus maps a stored status string to an EventStatus.
// Unknown values are treated as confirmed.
func ParseEventStatus(s string) EventStatus {
	if strings.EqualFold(s, string(EventStatusCancelled)) {
		return EventStatusCancelled
	}
	return EventStatusConfirmed
}

// PlatformKind identifies the booking platform an event originates from.
type PlatformKind int

const (
	// PlatformNone means the platform is unknown.
	PlatformNone PlatformKind = iota
	PlatformAirbnb
	PlatformBooking
	PlatformVRBO
	PlatformExpedia
	PlatformAbritel
	// PlatformOther carries a free-form name, usually the source's display label.
	PlatformOther
)

var platformNames = map[PlatformKind]string{
	PlatformAirbnb:  "Airbnb",
	PlatformBooking: "Booking.com",
	PlatformVRBO:    "VRBO",
	PlatformExpedia: "Expedia",
	PlatformAbritel: "Abritel",
}

// Platform is a closed set of known booking platforms plus an Other variant.
// The zero value is PlatformNone and is stored as NULL.
type Platform struct {
	Kind PlatformKind
	name string
}

// KnownPlatform returns the Platform for a known kind.
func KnownPlatform(kind PlatformKind) Platform {
	return Platform{Kind: kind}
}

// OtherPlatform returns a platform for a name outside the known set.
func OtherPlatform(name string) Platform {
	name = strings.TrimSpace(name)
	if name == "" {
		return Platform{}
	}
	return Platform{Kind: PlatformOther, name: name}
}

// ParsePlatform converts a display name back into a Platform.
func ParsePlatform(s string) Platform {
	s = strings.TrimSpace(s)
	if s == "" {
		return Platform{}
	}
	for kind, name := range platformNames {
		if strings.EqualFold(name, s) {
			return Platform{Kind: kind}
		}
	}
	return OtherPlatform(s)
}

// IsZero reports whether the platform is unknown.
func (p Platform) IsZero() bool {
	return p.Kind == PlatformNone
}

// String returns the display name of the platform, or "" when unknown.
func (p Platform) String() string {
	if p.Kind == PlatformOther {
		return p.name
	}
	return platformNames[p.Kind]
}

// MarshalJSON encodes the platform as its display name or null.
func (p Platform) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a display name or null.
func (p *Platform) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*p = Platform{}
		return nil
	}
	*p = ParsePlatform(*s)
	return nil
}

// Value implements driver.Valuer.
func (p Platform) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.String(), nil
}

// Scan implements sql.Scanner.
func (p *Platform) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Platform{}
	case string:
		*p = ParsePlatform(v)
	case []byte:
		*p = ParsePlatform(string(v))
	default:
		return fmt.Errorf("scanning platform: unsupported type %T", src)
	}
	return nil
}
