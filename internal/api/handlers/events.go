package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/locapp/backend/internal/api/middleware"
	"github.com/locapp/backend/internal/calendar"
	"github.com/locapp/backend/internal/storage"
	"github.com/locapp/backend/internal/storage/models"
	"github.com/locapp/backend/internal/websocket"
)

// DefaultBlockSummary labels manual blocks created without a summary.
const DefaultBlockSummary = "Bloqué"

// CreateEventRequest is the body of POST /api/properties/{id}/events.
type CreateEventRequest struct {
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Summary     string  `json:"summary"`
	GuestName   *string `json:"guest_name"`
	Description string  `json:"description"`
}

// ListEvents returns the events of a property, optionally limited to those
// overlapping [start, end).
func ListEvents(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}

		from, err := parseDateParam(r, "start")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Paramètre start invalide (AAAA-MM-JJ)")
			return
		}
		to, err := parseDateParam(r, "end")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Paramètre end invalide (AAAA-MM-JJ)")
			return
		}

		events, err := store.ListEvents(r.Context(), p.ID, from, to)
		if err != nil {
			log.Printf("Error listing events for %s: %v", p.ID, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de charger les événements")
			return
		}
		if events == nil {
			events = []models.CalendarEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// CreateEvent adds a manual block to a property. Blocks may not overlap a
// confirmed event.
func CreateEvent(store *storage.CalendarStore, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	checker := calendar.NewAvailabilityChecker(store)

	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}

		var req CreateEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Corps de requête invalide")
			return
		}

		start, errStart := time.Parse(models.DateLayout, req.StartDate)
		end, errEnd := time.Parse(models.DateLayout, req.EndDate)
		if errStart != nil || errEnd != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Les dates doivent être au format AAAA-MM-JJ")
			return
		}

		ctx := r.Context()
		availability, err := checker.Check(ctx, p.ID, start, end)
		if err != nil {
			middleware.WriteCalendarError(w, err)
			return
		}
		if !availability.Available {
			middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict,
				"Les dates chevauchent un événement existant", availability.Conflicts)
			return
		}

		summary := strings.TrimSpace(req.Summary)
		if summary == "" {
			summary = DefaultBlockSummary
		}
		if req.GuestName != nil {
			name := strings.TrimSpace(*req.GuestName)
			req.GuestName = &name
			if name == "" {
				req.GuestName = nil
			}
		}

		e := &models.CalendarEvent{
			PropertyID:  p.ID,
			StartDate:   start,
			EndDate:     end,
			Summary:     summary,
			GuestName:   req.GuestName,
			Status:      models.EventStatusConfirmed,
			Description: req.Description,
		}
		if err := store.Events.Upsert(ctx, e); err != nil {
			log.Printf("Error creating event for %s: %v", p.ID, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de créer l'événement")
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastEventsChanged(p.ID, e.ID, "created")
		}

		writeJSON(w, http.StatusCreated, e)
	}
}

// DeleteEvent removes a manual event. Imported events belong to their
// source and come back on the next sync, so they cannot be deleted here.
func DeleteEvent(store *storage.CalendarStore, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		e, err := store.Events.GetByID(ctx, id)
		if err != nil {
			log.Printf("Error loading event %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de supprimer l'événement")
			return
		}
		if e == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Événement introuvable")
			return
		}
		if e.SourceID != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict,
				"Les événements importés ne peuvent pas être supprimés")
			return
		}

		if err := store.Events.Delete(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Événement introuvable")
				return
			}
			log.Printf("Error deleting event %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de supprimer l'événement")
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastEventsChanged(e.PropertyID, e.ID, "deleted")
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CheckAvailability reports whether the stay [check_in, check_out) is free.
func CheckAvailability(store *storage.CalendarStore) http.HandlerFunc {
	checker := calendar.NewAvailabilityChecker(store)

	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}

		checkIn, errIn := parseDateParam(r, "check_in")
		checkOut, errOut := parseDateParam(r, "check_out")
		if errIn != nil || errOut != nil || checkIn == nil || checkOut == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation,
				"check_in et check_out sont obligatoires (AAAA-MM-JJ)")
			return
		}

		availability, err := checker.Check(r.Context(), p.ID, *checkIn, *checkOut)
		if err != nil {
			middleware.WriteCalendarError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availability)
	}
}

// ExportCalendar serves the public iCal feed of a property by slug.
func ExportCalendar(store *storage.CalendarStore) http.HandlerFunc {
	exporter := calendar.NewExporter(store)

	return func(w http.ResponseWriter, r *http.Request) {
		slug := mux.Vars(r)["slug"]
		ctx := r.Context()

		p, err := store.Properties.GetBySlug(ctx, slug)
		if err != nil {
			log.Printf("Error loading property %s: %v", slug, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de générer le calendrier")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Calendrier introuvable")
			return
		}

		body, err := exporter.Export(ctx, p.ID, p.Name, p.Slug)
		if err != nil {
			middleware.WriteCalendarError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", p.Slug+".ics"))
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(body)
	}
}
