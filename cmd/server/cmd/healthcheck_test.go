package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locapp/backend/internal/storage/models"
)

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8099/api/health", healthURL(":8099"))
	assert.Equal(t, "http://localhost:8099/api/health", healthURL("0.0.0.0:8099"))
	assert.Equal(t, "http://127.0.0.1:9000/api/health", healthURL("127.0.0.1:9000"))
	assert.Equal(t, "http://[::1]:9000/api/health", healthURL("[::1]:9000"))
}

func TestRunHealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	require.NoError(t, runHealthCheck(srv.URL))

	unhealthy.Store(true)
	assert.Error(t, runHealthCheck(srv.URL))
}

func TestReportOutcomes(t *testing.T) {
	two := 2
	var out bytes.Buffer

	err := reportOutcomes(&out, "p1", []models.SourceSyncOutcome{
		{SourceName: "Airbnb", Success: true, EventsCount: &two},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ Airbnb: 2 events")

	out.Reset()
	err = reportOutcomes(&out, "p1", []models.SourceSyncOutcome{
		{SourceName: "Airbnb", Success: true, EventsCount: &two},
		{SourceName: "Booking", Error: "Timeout: Le serveur ne répond pas"},
	})
	assert.EqualError(t, err, "1 of 2 sources failed for property p1")
	assert.Contains(t, out.String(), "✗ Booking: Timeout: Le serveur ne répond pas")
}
