package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	body, err := NewFetcher(time.Second, "").Fetch(context.Background(), srv.URL+"/feed.ics?t=secret")
	require.NoError(t, err)

	assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", body)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "text/calendar, application/calendar+xml, */*", gotAccept)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewFetcher(50*time.Millisecond, "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindTimeout))
	assert.Equal(t, "Timeout: Le serveur ne répond pas", err.Error())
}

func TestFetchContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFetcher(time.Minute, "").Fetch(ctx, srv.URL)
	assert.True(t, IsKind(err, ErrKindTimeout))
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second, "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindConnection))
	assert.Equal(t, "Erreur de connexion: 404 Not Found", err.Error())
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/private-token.ics"
	srv.Close()

	_, err := NewFetcher(time.Second, "").Fetch(context.Background(), url)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindConnection))
	assert.NotContains(t, err.Error(), "private-token", "the feed URL must not leak into the stored error")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://www.airbnb.com/...(redacted)",
		redactURL("https://www.airbnb.com/calendar/ical/123.ics?s=abcdef"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
