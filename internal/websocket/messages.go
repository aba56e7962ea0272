package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeCalendarSyncCompleted MessageType = "calendar.sync_completed"
	TypeCalendarSyncError     MessageType = "calendar.sync_error"
	TypeEventsChanged         MessageType = "calendar.events_changed"
	TypeNotification          MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// CalendarSyncPayload is the payload for calendar.sync_completed events.
type CalendarSyncPayload struct {
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	PropertyID  string    `json:"property_id"`
	Status      string    `json:"status"`
	EventsCount int       `json:"events_count"`
	Message     string    `json:"message"`
	SyncedAt    time.Time `json:"synced_at"`
}

// CalendarSyncErrorPayload is the payload for calendar.sync_error events.
type CalendarSyncErrorPayload struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// EventsChangedPayload tells clients to reload a property's calendar after a
// manual edit.
type EventsChangedPayload struct {
	PropertyID string `json:"property_id"`
	EventID    string `json:"event_id"`
	Action     string `json:"action"` // "created" or "deleted"
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

// clientCommand is the minimal shape of a message sent by a client.
type clientCommand struct {
	Type MessageType `json:"type"`
}
