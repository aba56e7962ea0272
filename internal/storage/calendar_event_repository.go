package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/locapp/backend/internal/storage/models"
)

const eventColumns = `id, property_id, source_id, uid, start_date, end_date, summary,
	guest_name, platform, status, description, created_at, updated_at`

// CalendarEventRepository provides data access for reconciled calendar events.
type CalendarEventRepository struct {
	BaseRepository
}

// NewCalendarEventRepository creates a new calendar event repository.
func NewCalendarEventRepository(db *DB) *CalendarEventRepository {
	return &CalendarEventRepository{BaseRepository: NewBaseRepository(db)}
}

// WithTx returns a repository whose queries run inside tx.
func (r *CalendarEventRepository) WithTx(tx *sql.Tx) *CalendarEventRepository {
	return &CalendarEventRepository{BaseRepository: r.BaseRepository.withTx(tx)}
}

// Upsert inserts an event, or updates the existing row when the same source
// already holds an event with the same non-empty UID. The stored row ID is
// written back to e.ID.
func (r *CalendarEventRepository) Upsert(ctx context.Context, e *models.CalendarEvent) error {
	if !e.StartDate.Before(e.EndDate) {
		return fmt.Errorf("event %q: start %s is not before end %s",
			e.UID, formatDate(e.StartDate), formatDate(e.EndDate))
	}
	if e.Status == "" {
		e.Status = models.EventStatusConfirmed
	}

	now := r.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	err := r.Q().QueryRowContext(ctx, `
		INSERT INTO calendar_events (
			id, property_id, source_id, uid, start_date, end_date, summary,
			guest_name, platform, status, description, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, uid) WHERE uid <> '' DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			summary = excluded.summary,
			guest_name = excluded.guest_name,
			platform = excluded.platform,
			status = excluded.status,
			description = excluded.description,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		GenerateID(), e.PropertyID, nullableString(e.SourceID), e.UID,
		formatDate(e.StartDate), formatDate(e.EndDate), e.Summary,
		nullableString(e.GuestName), e.Platform, string(e.Status), e.Description,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("upserting calendar event: %w", err)
	}

	return nil
}

// ClearSource deletes every event imported from a source.
func (r *CalendarEventRepository) ClearSource(ctx context.Context, sourceID string) (int64, error) {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM calendar_events WHERE source_id = ?", sourceID)
	if err != nil {
		return 0, fmt.Errorf("clearing source events: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// GetByID retrieves a single event. It returns nil when absent.
func (r *CalendarEventRepository) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	row := r.Q().QueryRowContext(ctx, "SELECT "+eventColumns+" FROM calendar_events WHERE id = ?", id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar event: %w", err)
	}
	return e, nil
}

// List returns the events of a property ordered by start date. When from
// and/or to are given, only events overlapping [from, to) are returned.
func (r *CalendarEventRepository) List(ctx context.Context, propertyID string, from, to *time.Time) ([]models.CalendarEvent, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + eventColumns + " FROM calendar_events WHERE property_id = ?")
	args := []any{propertyID}

	if to != nil {
		sb.WriteString(" AND start_date < ?")
		args = append(args, formatDate(*to))
	}
	if from != nil {
		sb.WriteString(" AND end_date > ?")
		args = append(args, formatDate(*from))
	}
	sb.WriteString(" ORDER BY start_date, end_date, id")

	return r.list(ctx, sb.String(), args...)
}

// ListBySource returns the events imported from one source.
func (r *CalendarEventRepository) ListBySource(ctx context.Context, sourceID string) ([]models.CalendarEvent, error) {
	return r.list(ctx, "SELECT "+eventColumns+" FROM calendar_events WHERE source_id = ? ORDER BY start_date, id", sourceID)
}

func (r *CalendarEventRepository) list(ctx context.Context, query string, args ...any) ([]models.CalendarEvent, error) {
	rows, err := r.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying calendar events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning calendar event: %w", err)
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

// Delete removes a single event.
func (r *CalendarEventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting calendar event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("calendar event %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	var (
		e          models.CalendarEvent
		start, end string
		status     string
	)
	err := row.Scan(
		&e.ID, &e.PropertyID, &e.SourceID, &e.UID, &start, &end, &e.Summary,
		&e.GuestName, &e.Platform, &status, &e.Description, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.StartDate, err = parseDate(start); err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	if e.EndDate, err = parseDate(end); err != nil {
		return nil, fmt.Errorf("parsing end_date: %w", err)
	}
	e.Status = models.ParseEventStatus(status)

	return &e, nil
}
