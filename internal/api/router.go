// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/locapp/backend/internal/api/handlers"
	"github.com/locapp/backend/internal/api/middleware"
	"github.com/locapp/backend/internal/calendar"
	"github.com/locapp/backend/internal/storage"
	"github.com/locapp/backend/internal/websocket"
)

// Dependencies are the services the routes are wired to.
// Hub, Scheduler and StaticDir are optional.
type Dependencies struct {
	DB          *storage.DB
	Store       *storage.CalendarStore
	SyncService *calendar.SyncService
	Hub         *websocket.Hub
	Scheduler   *calendar.Scheduler
	StaticDir   string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(deps Dependencies) *mux.Router {
	var broadcaster *websocket.EventBroadcaster
	if deps.Hub != nil {
		broadcaster = websocket.NewEventBroadcaster(deps.Hub)
	}
	store := deps.Store

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// Public iCal export
	r.HandleFunc("/calendar/{slug}.ics", handlers.ExportCalendar(store)).Methods("GET")

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(deps.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(deps.DB, deps.Hub, deps.Scheduler)).Methods("GET")

	// WebSocket endpoint
	if deps.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(deps.Hub)).Methods("GET")
	}

	// Property endpoints
	api.HandleFunc("/properties", handlers.ListProperties(store)).Methods("GET")
	api.HandleFunc("/properties", handlers.CreateProperty(store)).Methods("POST")
	api.HandleFunc("/properties/{id}", handlers.GetProperty(store)).Methods("GET")
	api.HandleFunc("/properties/{id}/sync", handlers.SyncPropertySources(store, deps.SyncService, broadcaster)).Methods("POST")

	// Calendar source endpoints
	api.HandleFunc("/properties/{id}/calendar-sources", handlers.ListCalendarSources(store)).Methods("GET")
	api.HandleFunc("/properties/{id}/calendar-sources", handlers.CreateCalendarSource(store)).Methods("POST")
	api.HandleFunc("/calendar-sources/{id}", handlers.UpdateCalendarSource(store)).Methods("PUT")
	api.HandleFunc("/calendar-sources/{id}", handlers.DeleteCalendarSource(store, broadcaster)).Methods("DELETE")
	api.HandleFunc("/calendar-sources/{id}/sync", handlers.SyncCalendarSource(deps.SyncService)).Methods("POST")

	// Event endpoints
	api.HandleFunc("/properties/{id}/events", handlers.ListEvents(store)).Methods("GET")
	api.HandleFunc("/properties/{id}/events", handlers.CreateEvent(store, broadcaster)).Methods("POST")
	api.HandleFunc("/properties/{id}/availability", handlers.CheckAvailability(store)).Methods("GET")
	api.HandleFunc("/events/{id}", handlers.DeleteEvent(store, broadcaster)).Methods("DELETE")

	// Serve static frontend files
	if deps.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(deps.StaticDir)))
	}

	return r
}
