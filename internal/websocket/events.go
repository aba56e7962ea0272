package websocket

import (
	"log"

	"github.com/locapp/backend/internal/storage/models"
)

// EventBroadcaster turns calendar activity into WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastCalendarSyncCompleted sends a calendar sync completed event.
func (b *EventBroadcaster) BroadcastCalendarSyncCompleted(result models.SyncResult) {
	payload := CalendarSyncPayload{
		SourceID:    result.SourceID,
		SourceName:  result.SourceName,
		PropertyID:  result.PropertyID,
		Status:      models.SyncStatusSuccess,
		EventsCount: result.EventsCount,
		Message:     result.Message,
		SyncedAt:    result.SyncedAt,
	}
	if !result.Success {
		payload.Status = models.SyncStatusError
	}

	b.broadcast(NewMessage(TypeCalendarSyncCompleted, payload))
}

// BroadcastCalendarSyncError sends a calendar sync error event.
func (b *EventBroadcaster) BroadcastCalendarSyncError(sourceID, sourceName string, err error) {
	payload := CalendarSyncErrorPayload{
		SourceID:   sourceID,
		SourceName: sourceName,
		Error:      "sync_error",
		Message:    err.Error(),
	}

	b.broadcast(NewMessage(TypeCalendarSyncError, payload))
}

// BroadcastEventsChanged sends a calendar.events_changed event.
func (b *EventBroadcaster) BroadcastEventsChanged(propertyID, eventID, action string) {
	b.broadcast(NewMessage(TypeEventsChanged, EventsChangedPayload{
		PropertyID: propertyID,
		EventID:    eventID,
		Action:     action,
	}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	b.broadcast(NewMessage(TypeNotification, payload))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
