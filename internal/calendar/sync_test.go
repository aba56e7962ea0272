package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locapp/backend/internal/storage"
	"github.com/locapp/backend/internal/storage/models"
)

const scenarioFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:abc123\r\n" +
	"DTSTART;VALUE=DATE:20240601\r\n" +
	"DTEND;VALUE=DATE:20240605\r\n" +
	"SUMMARY:Jane - Airbnb\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:xyz789\r\n" +
	"DTSTART;VALUE=DATE:20240610\r\n" +
	"DTEND;VALUE=DATE:20240612\r\n" +
	"SUMMARY:Blocked\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

// feedServer serves whatever body is currently set.
type feedServer struct {
	*httptest.Server
	mu     sync.Mutex
	body   string
	status int
}

func newFeedServer(t *testing.T, body string) *feedServer {
	t.Helper()
	fs := &feedServer{body: body, status: http.StatusOK}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		w.WriteHeader(fs.status)
		w.Write([]byte(fs.body))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) set(status int, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.status = status
	fs.body = body
}

type syncFixture struct {
	store    *storage.CalendarStore
	property *models.Property
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := storage.NewCalendarStore(db)
	p := &models.Property{Name: "Gîte du Lac", Slug: "gite-du-lac"}
	require.NoError(t, store.Properties.Create(context.Background(), p))
	return &syncFixture{store: store, property: p}
}

func (f *syncFixture) addSource(t *testing.T, name, url string, active bool) *models.CalendarSource {
	t.Helper()
	src := &models.CalendarSource{
		PropertyID: f.property.ID,
		ICalURL:    url,
		SourceName: name,
		IsActive:   active,
	}
	require.NoError(t, f.store.Sources.Create(context.Background(), src))
	return src
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []models.SyncResult
	failed    []string
}

func (n *recordingNotifier) BroadcastCalendarSyncCompleted(result models.SyncResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, result)
}

func (n *recordingNotifier) BroadcastCalendarSyncError(sourceID, sourceName string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, sourceID)
}

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSyncSourceScenario(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, scenarioFeed)
	src := f.addSource(t, "Gîtes de France", srv.URL, true)

	notifier := &recordingNotifier{}
	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{Notifier: notifier})

	result, err := svc.SyncSource(ctx, src.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.EventsCount)
	assert.Equal(t, "2 événements synchronisés", result.Message)

	events, err := f.store.ListEvents(ctx, f.property.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)

	jane := events[0]
	assert.Equal(t, "abc123", jane.UID)
	require.NotNil(t, jane.GuestName)
	assert.Equal(t, "Jane", *jane.GuestName)
	assert.Equal(t, models.PlatformAirbnb, jane.Platform.Kind)
	assert.Equal(t, models.EventStatusConfirmed, jane.Status)

	blocked := events[1]
	assert.Nil(t, blocked.GuestName)
	assert.Equal(t, models.PlatformOther, blocked.Platform.Kind)
	assert.Equal(t, "Gîtes de France", blocked.Platform.String())
	assert.Equal(t, models.EventStatusConfirmed, blocked.Status)

	stored, err := f.store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, stored.LastSyncStatus)
	assert.NotNil(t, stored.LastSync)
	assert.Nil(t, stored.LastError)

	availability, err := NewAvailabilityChecker(f.store).Check(ctx, f.property.ID, date("2024-06-02"), date("2024-06-03"))
	require.NoError(t, err)
	assert.False(t, availability.Available)
	require.Len(t, availability.Conflicts, 1)
	assert.Equal(t, "abc123", availability.Conflicts[0].UID)

	assert.Len(t, notifier.completed, 1)
	assert.Empty(t, notifier.failed)
}

func TestSyncSourceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, scenarioFeed)
	src := f.addSource(t, "Airbnb", srv.URL, true)
	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{})

	_, err := svc.SyncSource(ctx, src.ID)
	require.NoError(t, err)
	first, err := f.store.ListEvents(ctx, f.property.ID, nil, nil)
	require.NoError(t, err)

	_, err = svc.SyncSource(ctx, src.ID)
	require.NoError(t, err)
	second, err := f.store.ListEvents(ctx, f.property.ID, nil, nil)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].UID, second[i].UID)
		assert.Equal(t, first[i].StartDate, second[i].StartDate)
		assert.Equal(t, first[i].EndDate, second[i].EndDate)
		assert.Equal(t, first[i].GuestName, second[i].GuestName)
		assert.Equal(t, first[i].Platform, second[i].Platform)
		assert.Equal(t, first[i].Status, second[i].Status)
	}
}

func TestSyncSourceCountsRepeatedUIDOnce(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, feed(
		[]string{
			"UID:dup",
			"DTSTART;VALUE=DATE:20240601",
			"DTEND;VALUE=DATE:20240603",
			"SUMMARY:Jane - Airbnb",
		},
		[]string{
			"UID:dup",
			"DTSTART;VALUE=DATE:20240605",
			"DTEND;VALUE=DATE:20240608",
			"SUMMARY:Jane - Airbnb",
		},
		[]string{
			"UID:other",
			"DTSTART;VALUE=DATE:20240610",
			"DTEND;VALUE=DATE:20240612",
		},
	))
	src := f.addSource(t, "Airbnb", srv.URL, true)
	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{})

	result, err := svc.SyncSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EventsCount)
	assert.Equal(t, "2 événements synchronisés", result.Message)

	events, err := f.store.ListEvents(ctx, f.property.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "dup", events[0].UID)
	assert.Equal(t, "2024-06-05", events[0].StartDate.Format(models.DateLayout))
}

func TestSyncSourceFailureKeepsPreviousEvents(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, scenarioFeed)
	src := f.addSource(t, "Airbnb", srv.URL, true)
	notifier := &recordingNotifier{}
	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{Notifier: notifier})

	_, err := svc.SyncSource(ctx, src.ID)
	require.NoError(t, err)

	srv.set(http.StatusOK, "<html>maintenance</html>")
	_, err = svc.SyncSource(ctx, src.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindParse))

	stored, err := f.store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, stored.LastSyncStatus)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, err.Error(), *stored.LastError)

	events, err := f.store.ListEvents(ctx, f.property.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, []string{src.ID}, notifier.failed)
}

func TestSyncSourceTimeout(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	src := f.addSource(t, "Slow", slow.URL, true)
	svc := NewSyncService(f.store, NewFetcher(50*time.Millisecond, ""), SyncOptions{})

	_, err := svc.SyncSource(ctx, src.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindTimeout))

	stored, err := f.store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, stored.LastSyncStatus)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "Timeout")
}

func TestSyncSourceNotFound(t *testing.T) {
	f := newSyncFixture(t)
	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{})

	_, err := svc.SyncSource(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindNotFound))
	assert.Equal(t, "Source de calendrier introuvable", err.Error())
}

type failingStore struct {
	*storage.CalendarStore
}

func (failingStore) ReplaceSourceEvents(context.Context, string, []models.CalendarEvent) error {
	return errors.New("disk I/O error")
}

func TestSyncSourceWrapsUnexpectedErrors(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, scenarioFeed)
	src := f.addSource(t, "Airbnb", srv.URL, true)
	svc := NewSyncService(failingStore{f.store}, NewFetcher(time.Second, ""), SyncOptions{})

	_, err := svc.SyncSource(ctx, src.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindUnexpected))
	assert.Equal(t, "Erreur inattendue: disk I/O error", err.Error())

	stored, err := f.store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "Erreur inattendue: disk I/O error", *stored.LastError)
}

// blockingFetcher holds every fetch until released.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return scenarioFeed, nil
}

func TestSyncSourceRejectsConcurrentRunOfSameSource(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	src := f.addSource(t, "Airbnb", "https://example.invalid/a.ics", true)

	fetcher := &blockingFetcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewSyncService(f.store, fetcher, SyncOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncSource(ctx, src.ID)
		done <- err
	}()
	<-fetcher.started
	assert.True(t, svc.IsSyncing(src.ID))

	_, err := svc.SyncSource(ctx, src.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindBusy))

	close(fetcher.release)
	require.NoError(t, <-done)
	assert.False(t, svc.IsSyncing(src.ID))
}

func TestSyncPropertyReportsEachSource(t *testing.T) {
	for _, concurrency := range []int{0, 4} {
		t.Run("concurrency", func(t *testing.T) {
			ctx := context.Background()
			f := newSyncFixture(t)
			good := newFeedServer(t, scenarioFeed)
			bad := newFeedServer(t, "")
			bad.set(http.StatusInternalServerError, "boom")

			a := f.addSource(t, "A-Airbnb", good.URL, true)
			b := f.addSource(t, "B-Broken", bad.URL, true)
			f.addSource(t, "C-Inactive", good.URL, false)

			svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{Concurrency: concurrency})
			outcomes, err := svc.SyncProperty(ctx, f.property.ID)
			require.NoError(t, err)
			require.Len(t, outcomes, 2)

			assert.Equal(t, a.ID, outcomes[0].SourceID)
			assert.True(t, outcomes[0].Success)
			require.NotNil(t, outcomes[0].EventsCount)
			assert.Equal(t, 2, *outcomes[0].EventsCount)

			assert.Equal(t, b.ID, outcomes[1].SourceID)
			assert.Equal(t, "B-Broken", outcomes[1].SourceName)
			assert.False(t, outcomes[1].Success)
			assert.Nil(t, outcomes[1].EventsCount)
			assert.Equal(t, "Erreur de connexion: 500 Internal Server Error", outcomes[1].Error)
		})
	}
}

func TestSyncAllActive(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, scenarioFeed)
	f.addSource(t, "Airbnb", srv.URL, true)

	other := &models.Property{Name: "Studio", Slug: "studio"}
	require.NoError(t, f.store.Properties.Create(ctx, other))

	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{})
	results, err := svc.SyncAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, f.property.ID, results[0].PropertyID)
	require.Len(t, results[0].Sources, 1)
	assert.True(t, results[0].Sources[0].Success)
}
