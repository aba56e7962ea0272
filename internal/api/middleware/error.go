// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/locapp/backend/internal/calendar"
)

// Error codes carried in ErrorResponse.Error.
const (
	ErrNotFound      = "not_found"
	ErrBadRequest    = "bad_request"
	ErrConflict      = "conflict"
	ErrInternalError = "internal_error"
	ErrValidation    = "validation_error"
	ErrUpstream      = "upstream_error"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteErrorWithDetails(w, status, errCode, message, nil)
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: errCode, Message: message, Details: details}); err != nil {
		log.Printf("Error encoding error response: %v", err)
	}
}

// CalendarErrorStatus maps a sync engine failure to an HTTP status and
// error code. Feed failures are the upstream's fault, anything that is not
// a *calendar.CalendarError is ours.
func CalendarErrorStatus(err error) (int, string) {
	var ce *calendar.CalendarError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError, ErrInternalError
	}
	switch ce.Kind {
	case calendar.ErrKindNotFound:
		return http.StatusNotFound, ErrNotFound
	case calendar.ErrKindBusy:
		return http.StatusConflict, ErrConflict
	case calendar.ErrKindValidation:
		return http.StatusBadRequest, ErrValidation
	case calendar.ErrKindTimeout:
		return http.StatusGatewayTimeout, ErrUpstream
	case calendar.ErrKindConnection, calendar.ErrKindParse:
		return http.StatusBadGateway, ErrUpstream
	default:
		return http.StatusInternalServerError, ErrInternalError
	}
}

// WriteCalendarError writes err with the status CalendarErrorStatus picks.
// The message is the user-facing French text of the error.
func WriteCalendarError(w http.ResponseWriter, err error) {
	status, code := CalendarErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Calendar operation failed: %v", err)
	}
	WriteError(w, status, code, err.Error())
}

// ErrorRecovery turns a panicking handler into a 500 response.
func ErrorRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("Panic recovered on %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "Une erreur inattendue est survenue")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
