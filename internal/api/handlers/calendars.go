package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/locapp/backend/internal/api/middleware"
	"github.com/locapp/backend/internal/calendar"
	"github.com/locapp/backend/internal/storage"
	"github.com/locapp/backend/internal/storage/models"
	"github.com/locapp/backend/internal/websocket"
)

// Calendar source request/response types

type CreateCalendarSourceRequest struct {
	ICalURL    string `json:"ical_url"`
	SourceName string `json:"source_name"`
	IsActive   *bool  `json:"is_active"`
}

type UpdateCalendarSourceRequest struct {
	ICalURL    *string `json:"ical_url"`
	SourceName *string `json:"source_name"`
	IsActive   *bool   `json:"is_active"`
}

// SyncErrorResponse is returned when a manual sync fails.
type SyncErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ListCalendarSources returns the calendar sources of a property.
func ListCalendarSources(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}

		sources, err := store.Sources.ListByProperty(r.Context(), p.ID)
		if err != nil {
			log.Printf("Error listing calendar sources: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de charger les calendriers")
			return
		}
		if sources == nil {
			sources = []models.CalendarSource{}
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

// CreateCalendarSource attaches a new iCal feed to a property. Sources are
// active unless is_active is explicitly false.
func CreateCalendarSource(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}

		var req CreateCalendarSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Corps de requête invalide")
			return
		}

		src := &models.CalendarSource{
			PropertyID: p.ID,
			ICalURL:    strings.TrimSpace(req.ICalURL),
			SourceName: strings.TrimSpace(req.SourceName),
			IsActive:   req.IsActive == nil || *req.IsActive,
		}
		if err := validateSource(src); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		if err := store.Sources.Create(r.Context(), src); err != nil {
			log.Printf("Error creating calendar source: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible d'ajouter le calendrier")
			return
		}

		writeJSON(w, http.StatusCreated, src)
	}
}

// UpdateCalendarSource changes the URL, label or active flag of a source.
// Omitted fields keep their value.
func UpdateCalendarSource(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		var req UpdateCalendarSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Corps de requête invalide")
			return
		}

		src, err := store.Sources.GetByID(ctx, id)
		if err != nil {
			log.Printf("Error loading calendar source %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de charger le calendrier")
			return
		}
		if src == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source de calendrier introuvable")
			return
		}

		if req.ICalURL != nil {
			src.ICalURL = strings.TrimSpace(*req.ICalURL)
		}
		if req.SourceName != nil {
			src.SourceName = strings.TrimSpace(*req.SourceName)
		}
		if req.IsActive != nil {
			src.IsActive = *req.IsActive
		}
		if err := validateSource(src); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		if err := store.Sources.Update(ctx, src); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source de calendrier introuvable")
				return
			}
			log.Printf("Error updating calendar source %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de modifier le calendrier")
			return
		}

		writeJSON(w, http.StatusOK, src)
	}
}

// DeleteCalendarSource removes a source together with its imported events.
func DeleteCalendarSource(store *storage.CalendarStore, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		src, err := store.Sources.GetByID(ctx, id)
		if err != nil {
			log.Printf("Error loading calendar source %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de supprimer le calendrier")
			return
		}
		if src == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source de calendrier introuvable")
			return
		}

		if err := store.Sources.Delete(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source de calendrier introuvable")
				return
			}
			log.Printf("Error deleting calendar source %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de supprimer le calendrier")
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastEventsChanged(src.PropertyID, "", "source_deleted")
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SyncCalendarSource runs a sync of one source and waits for its outcome.
func SyncCalendarSource(syncService *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		result, err := syncService.SyncSource(r.Context(), id)
		if err != nil {
			status, _ := middleware.CalendarErrorStatus(err)
			writeJSON(w, status, SyncErrorResponse{Success: false, Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// SyncPropertySources syncs every active source of a property and returns
// one outcome per source.
func SyncPropertySources(store *storage.CalendarStore, syncService *calendar.SyncService, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}

		outcomes, err := syncService.SyncProperty(r.Context(), p.ID)
		if err != nil {
			middleware.WriteCalendarError(w, err)
			return
		}

		if broadcaster != nil && len(outcomes) > 0 {
			synced := 0
			for _, o := range outcomes {
				if o.Success {
					synced++
				}
			}
			level := "success"
			if synced < len(outcomes) {
				level = "warning"
			}
			broadcaster.BroadcastNotification(level, p.Name,
				fmt.Sprintf("%d/%d calendriers synchronisés", synced, len(outcomes)))
		}

		writeJSON(w, http.StatusOK, outcomes)
	}
}

func validateSource(src *models.CalendarSource) error {
	if src.SourceName == "" {
		return errors.New("Le nom du calendrier est obligatoire")
	}
	if src.ICalURL == "" {
		return errors.New("L'URL iCal est obligatoire")
	}
	u, err := url.Parse(src.ICalURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("L'URL iCal doit être une adresse http(s) valide")
	}
	return nil
}
