package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locapp/backend/internal/calendar"
)

func TestCalendarErrorStatus(t *testing.T) {
	tests := []struct {
		kind   calendar.ErrorKind
		status int
		code   string
	}{
		{calendar.ErrKindNotFound, http.StatusNotFound, ErrNotFound},
		{calendar.ErrKindBusy, http.StatusConflict, ErrConflict},
		{calendar.ErrKindValidation, http.StatusBadRequest, ErrValidation},
		{calendar.ErrKindTimeout, http.StatusGatewayTimeout, ErrUpstream},
		{calendar.ErrKindConnection, http.StatusBadGateway, ErrUpstream},
		{calendar.ErrKindParse, http.StatusBadGateway, ErrUpstream},
		{calendar.ErrKindUnexpected, http.StatusInternalServerError, ErrInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("syncing: %w", &calendar.CalendarError{Kind: tt.kind, Message: "boom"})
			status, code := CalendarErrorStatus(err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}

	status, code := CalendarErrorStatus(errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrInternalError, code)
}

func TestWriteCalendarError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCalendarError(rec, &calendar.CalendarError{
		Kind:    calendar.ErrKindTimeout,
		Message: "Timeout: Le serveur ne répond pas",
	})

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrUpstream, body.Error)
	assert.Equal(t, "Timeout: Le serveur ne répond pas", body.Message)
	assert.Nil(t, body.Details)
}

func TestErrorRecovery(t *testing.T) {
	h := ErrorRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrInternalError, body.Error)
}
