// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/mux"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/locapp/backend/internal/api/middleware"
	"github.com/locapp/backend/internal/storage"
	"github.com/locapp/backend/internal/storage/models"
)

// CreatePropertyRequest is the body of POST /api/properties.
type CreatePropertyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListProperties returns all properties.
func ListProperties(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		properties, err := store.Properties.List(r.Context())
		if err != nil {
			log.Printf("Error listing properties: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de charger les logements")
			return
		}
		if properties == nil {
			properties = []models.Property{}
		}
		writeJSON(w, http.StatusOK, properties)
	}
}

// CreateProperty adds a property. The slug is derived from the name when
// not provided and suffixed until it is unique.
func CreateProperty(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Corps de requête invalide")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Le nom est obligatoire")
			return
		}

		base := Slugify(req.Slug)
		if base == "" {
			base = Slugify(req.Name)
		}
		if base == "" {
			base = "logement"
		}

		ctx := r.Context()
		slug := base
		for n := 2; ; n++ {
			existing, err := store.Properties.GetBySlug(ctx, slug)
			if err != nil {
				log.Printf("Error checking slug %s: %v", slug, err)
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de créer le logement")
				return
			}
			if existing == nil {
				break
			}
			slug = fmt.Sprintf("%s-%d", base, n)
		}

		p := &models.Property{Name: req.Name, Slug: slug}
		if err := store.Properties.Create(ctx, p); err != nil {
			log.Printf("Error creating property: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de créer le logement")
			return
		}

		writeJSON(w, http.StatusCreated, p)
	}
}

// GetProperty returns a single property by ID.
func GetProperty(store *storage.CalendarStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProperty(w, r, store)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// loadProperty resolves the {id} route variable. It writes the error
// response itself and returns false when the request cannot proceed.
func loadProperty(w http.ResponseWriter, r *http.Request, store *storage.CalendarStore) (*models.Property, bool) {
	id := mux.Vars(r)["id"]
	p, err := store.Properties.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Error loading property %s: %v", id, err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Impossible de charger le logement")
		return nil, false
	}
	if p == nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Logement introuvable")
		return nil, false
	}
	return p, true
}

var ligatures = strings.NewReplacer("œ", "oe", "æ", "ae")

// Slugify turns a display name into a lowercase URL segment made of
// ASCII letters, digits and single dashes.
func Slugify(s string) string {
	s = ligatures.Replace(strings.ToLower(strings.TrimSpace(s)))
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
