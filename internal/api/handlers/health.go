package handlers

import (
	"net/http"
	"time"

	"github.com/locapp/backend/internal/calendar"
	"github.com/locapp/backend/internal/storage"
	"github.com/locapp/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{Status: status, DBConnected: dbConnected})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	SchemaVersion      string     `json:"schema_version"`
	PropertiesCount    int        `json:"properties_count"`
	SourcesCount       int        `json:"sources_count"`
	ActiveSourcesCount int        `json:"active_sources_count"`
	FailingSources     int        `json:"failing_sources"`
	EventsCount        int        `json:"events_count"`
	WebSocketClients   int        `json:"websocket_clients"`
	LastSyncRunAt      *time.Time `json:"last_sync_run_at,omitempty"`
	NextSyncAt         *time.Time `json:"next_sync_at,omitempty"`
}

// Status returns a handler that provides system status information.
// hub and scheduler are optional.
func Status(db *storage.DB, hub *websocket.Hub, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var resp StatusResponse
		if version, err := storage.SchemaVersion(ctx, db); err == nil {
			resp.SchemaVersion = version
		}
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties").Scan(&resp.PropertiesCount)
		db.QueryRowContext(ctx, `
			SELECT COUNT(*),
				COALESCE(SUM(is_active), 0),
				COALESCE(SUM(CASE WHEN last_sync_status = 'error' THEN 1 ELSE 0 END), 0)
			FROM calendar_sources
		`).Scan(&resp.SourcesCount, &resp.ActiveSourcesCount, &resp.FailingSources)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_events").Scan(&resp.EventsCount)

		if hub != nil {
			resp.WebSocketClients = hub.ClientCount()
		}
		if scheduler != nil {
			if last := scheduler.LastRun(); !last.IsZero() {
				resp.LastSyncRunAt = &last
			}
			resp.NextSyncAt = scheduler.NextRun()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
