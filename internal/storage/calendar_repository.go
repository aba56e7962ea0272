package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/locapp/backend/internal/storage/models"
)

const sourceColumns = `id, property_id, ical_url, source_name, is_active, last_sync,
	last_sync_status, last_error, created_at, updated_at`

// CalendarSourceRepository provides data access for calendar sources.
type CalendarSourceRepository struct {
	BaseRepository
}

// NewCalendarSourceRepository creates a new calendar source repository.
func NewCalendarSourceRepository(db *DB) *CalendarSourceRepository {
	return &CalendarSourceRepository{BaseRepository: NewBaseRepository(db)}
}

// WithTx returns a repository whose queries run inside tx.
func (r *CalendarSourceRepository) WithTx(tx *sql.Tx) *CalendarSourceRepository {
	return &CalendarSourceRepository{BaseRepository: r.BaseRepository.withTx(tx)}
}

// Create inserts a new calendar source.
func (r *CalendarSourceRepository) Create(ctx context.Context, src *models.CalendarSource) error {
	src.ID = GenerateID()
	src.CreatedAt = r.Now()
	src.UpdatedAt = src.CreatedAt
	src.LastSyncStatus = models.SyncStatusPending

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO calendar_sources (
			id, property_id, ical_url, source_name, is_active, last_sync_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		src.ID, src.PropertyID, src.ICalURL, src.SourceName,
		src.IsActive, src.LastSyncStatus, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting calendar source: %w", err)
	}

	return nil
}

// GetByID retrieves a calendar source by its ID. It returns nil when absent.
func (r *CalendarSourceRepository) GetByID(ctx context.Context, id string) (*models.CalendarSource, error) {
	row := r.Q().QueryRowContext(ctx, "SELECT "+sourceColumns+" FROM calendar_sources WHERE id = ?", id)

	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar source: %w", err)
	}

	return src, nil
}

// ListByProperty retrieves every calendar source of a property.
func (r *CalendarSourceRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.CalendarSource, error) {
	return r.list(ctx, "SELECT "+sourceColumns+" FROM calendar_sources WHERE property_id = ? ORDER BY source_name, id", propertyID)
}

// ListActiveByProperty retrieves the active calendar sources of a property.
func (r *CalendarSourceRepository) ListActiveByProperty(ctx context.Context, propertyID string) ([]models.CalendarSource, error) {
	return r.list(ctx, "SELECT "+sourceColumns+" FROM calendar_sources WHERE property_id = ? AND is_active = 1 ORDER BY source_name, id", propertyID)
}

func (r *CalendarSourceRepository) list(ctx context.Context, query string, args ...any) ([]models.CalendarSource, error) {
	rows, err := r.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying calendar sources: %w", err)
	}
	defer rows.Close()

	var sources []models.CalendarSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning calendar source: %w", err)
		}
		sources = append(sources, *src)
	}

	return sources, rows.Err()
}

// ListPropertyIDsWithActiveSources returns the properties that own at least one
// active source, least recently synced first.
func (r *CalendarSourceRepository) ListPropertyIDsWithActiveSources(ctx context.Context) ([]string, error) {
	rows, err := r.Q().QueryContext(ctx, `
		SELECT property_id FROM calendar_sources
		WHERE is_active = 1
		GROUP BY property_id
		ORDER BY MIN(COALESCE(last_sync, '')) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying syncable properties: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning property ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Update updates the editable fields of a calendar source.
func (r *CalendarSourceRepository) Update(ctx context.Context, src *models.CalendarSource) error {
	src.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE calendar_sources SET
			ical_url = ?, source_name = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, src.ICalURL, src.SourceName, src.IsActive, src.UpdatedAt, src.ID)
	if err != nil {
		return fmt.Errorf("updating calendar source: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("calendar source %s: %w", src.ID, ErrNotFound)
	}

	return nil
}

// UpdateSyncStatus records the outcome of a sync. last_sync only advances on success.
func (r *CalendarSourceRepository) UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error {
	now := time.Now().UTC()
	var lastSync *time.Time
	if status == models.SyncStatusSuccess {
		lastSync = &now
	}

	_, err := r.Q().ExecContext(ctx, `
		UPDATE calendar_sources SET
			last_sync_status = ?, last_error = ?, last_sync = COALESCE(?, last_sync), updated_at = ?
		WHERE id = ?
	`, status, nullableString(syncError), lastSync, now, id)
	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}

	return nil
}

// Delete removes a calendar source and, through the foreign key, its events.
func (r *CalendarSourceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM calendar_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting calendar source: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("calendar source %s: %w", id, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*models.CalendarSource, error) {
	src := &models.CalendarSource{}
	err := row.Scan(
		&src.ID, &src.PropertyID, &src.ICalURL, &src.SourceName, &src.IsActive,
		&src.LastSync, &src.LastSyncStatus, &src.LastError,
		&src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return src, nil
}
