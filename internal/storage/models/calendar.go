// Package models contains the domain models for the application.
package models

import (
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// CalendarSource represents an external iCal feed attached to a property.
type CalendarSource struct {
	ID             string     `json:"id"`
	PropertyID     string     `json:"property_id"`
	ICalURL        string     `json:"ical_url"`
	SourceName     string     `json:"source_name"`
	IsActive       bool       `json:"is_active"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastError      *string    `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SyncStatus constants
const (
	SyncStatusPending = "pending"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// CalendarEvent is a reconciled booking or block stored for a property.
// SourceID is nil for events created manually by the host.
type CalendarEvent struct {
	ID          string      `json:"id"`
	PropertyID  string      `json:"property_id"`
	SourceID    *string     `json:"source_id,omitempty"`
	UID         string      `json:"uid"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Summary     string      `json:"summary"`
	GuestName   *string     `json:"guest_name"`
	Platform    Platform    `json:"platform"`
	Status      EventStatus `json:"status"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Overlaps reports whether the event's [start, end) interval intersects [start, end).
func (e CalendarEvent) Overlaps(start, end time.Time) bool {
	return e.StartDate.Before(end) && e.EndDate.After(start)
}

// SyncResult contains the result of synchronizing one calendar source.
type SyncResult struct {
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	PropertyID  string    `json:"property_id"`
	Success     bool      `json:"success"`
	EventsCount int       `json:"events_count"`
	Message     string    `json:"message"`
	SyncedAt    time.Time `json:"synced_at"`
}

// SourceSyncOutcome is one entry of a property-wide sync. Failures are
// reported through Error rather than aborting the remaining sources.
type SourceSyncOutcome struct {
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	Success     bool   `json:"success"`
	EventsCount *int   `json:"events_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Availability is the answer to an availability query for a date range.
type Availability struct {
	Available bool            `json:"available"`
	Conflicts []CalendarEvent `json:"conflicts"`
}
