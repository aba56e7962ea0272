package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/locapp/backend/internal/storage/models"
)

// CalendarStore groups the repositories the calendar engine works with and
// provides the multi-table operations that must commit atomically.
type CalendarStore struct {
	db         *DB
	Properties *PropertyRepository
	Sources    *CalendarSourceRepository
	Events     *CalendarEventRepository
}

// NewCalendarStore creates a calendar store backed by db.
func NewCalendarStore(db *DB) *CalendarStore {
	return &CalendarStore{
		db:         db,
		Properties: NewPropertyRepository(db),
		Sources:    NewCalendarSourceRepository(db),
		Events:     NewCalendarEventRepository(db),
	}
}

// GetSource returns a calendar source, or nil when it does not exist.
func (s *CalendarStore) GetSource(ctx context.Context, sourceID string) (*models.CalendarSource, error) {
	return s.Sources.GetByID(ctx, sourceID)
}

// ListActiveSources returns the active sources of a property.
func (s *CalendarStore) ListActiveSources(ctx context.Context, propertyID string) ([]models.CalendarSource, error) {
	return s.Sources.ListActiveByProperty(ctx, propertyID)
}

// ListSyncablePropertyIDs returns every property owning at least one active source.
func (s *CalendarStore) ListSyncablePropertyIDs(ctx context.Context) ([]string, error) {
	return s.Sources.ListPropertyIDsWithActiveSources(ctx)
}

// ListEvents returns the events of a property overlapping [from, to).
func (s *CalendarStore) ListEvents(ctx context.Context, propertyID string, from, to *time.Time) ([]models.CalendarEvent, error) {
	return s.Events.List(ctx, propertyID, from, to)
}

// ReplaceSourceEvents swaps the stored events of a source for a fresh set and
// marks the source as successfully synced. Either everything commits or the
// previous events stay untouched.
func (s *CalendarStore) ReplaceSourceEvents(ctx context.Context, sourceID string, events []models.CalendarEvent) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		eventsTx := s.Events.WithTx(tx)

		if _, err := eventsTx.ClearSource(ctx, sourceID); err != nil {
			return err
		}

		for i := range events {
			e := &events[i]
			id := sourceID
			e.SourceID = &id
			if err := eventsTx.Upsert(ctx, e); err != nil {
				return fmt.Errorf("storing event %d of source %s: %w", i, sourceID, err)
			}
		}

		return s.Sources.WithTx(tx).UpdateSyncStatus(ctx, sourceID, models.SyncStatusSuccess, nil)
	})
}

// RecordSyncError marks a source as failed. It commits on its own so the
// failure stays visible even though the reconciliation was rolled back.
func (s *CalendarStore) RecordSyncError(ctx context.Context, sourceID, message string) error {
	return s.Sources.UpdateSyncStatus(ctx, sourceID, models.SyncStatusError, &message)
}
