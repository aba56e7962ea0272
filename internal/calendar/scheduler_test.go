package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locapp/backend/internal/storage/models"
)

func TestSchedulerRunOnce(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	srv := newFeedServer(t, scenarioFeed)
	src := f.addSource(t, "Airbnb", srv.URL, true)

	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{})
	s := NewScheduler(svc, time.Hour)
	assert.True(t, s.LastRun().IsZero())

	s.RunOnce(ctx)

	assert.False(t, s.LastRun().IsZero())
	stored, err := f.store.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, stored.LastSyncStatus)
}

func TestSchedulerStartStop(t *testing.T) {
	f := newSyncFixture(t)
	svc := NewSyncService(f.store, NewFetcher(time.Second, ""), SyncOptions{})

	s := NewScheduler(svc, 0)
	assert.Nil(t, s.NextRun())

	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.NextRun()
	require.NotNil(t, next)
	assert.WithinDuration(t, time.Now().Add(DefaultSyncInterval), *next, time.Minute)
}

func TestIntervalToCronSpec(t *testing.T) {
	assert.Equal(t, "@every 15m0s", intervalToCronSpec(15*time.Minute))
}
