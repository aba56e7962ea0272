package calendar

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/locapp/backend/internal/storage/models"
)

// Store is the persistence the sync service depends on.
type Store interface {
	GetSource(ctx context.Context, sourceID string) (*models.CalendarSource, error)
	ListActiveSources(ctx context.Context, propertyID string) ([]models.CalendarSource, error)
	ListSyncablePropertyIDs(ctx context.Context) ([]string, error)
	ReplaceSourceEvents(ctx context.Context, sourceID string, events []models.CalendarEvent) error
	RecordSyncError(ctx context.Context, sourceID, message string) error
}

// FeedFetcher retrieves a raw feed body.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// Notifier is told about every finished source sync.
type Notifier interface {
	BroadcastCalendarSyncCompleted(result models.SyncResult)
	BroadcastCalendarSyncError(sourceID, sourceName string, err error)
}

// SyncOptions tunes a SyncService.
type SyncOptions struct {
	// Concurrency is the number of sources of one property synced at once.
	// Values below 2 sync sequentially.
	Concurrency int
	// Notifier is optional.
	Notifier Notifier
}

// SyncService imports calendar sources and reconciles their events.
type SyncService struct {
	store    Store
	fetcher  FeedFetcher
	parser   *Parser
	notifier Notifier

	concurrency int

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// NewSyncService creates a new calendar sync service.
func NewSyncService(store Store, fetcher FeedFetcher, opts SyncOptions) *SyncService {
	return &SyncService{
		store:       store,
		fetcher:     fetcher,
		parser:      NewParser(),
		notifier:    opts.Notifier,
		concurrency: opts.Concurrency,
		inFlight:    make(map[string]struct{}),
	}
}

// PropertySync groups the per-source outcomes of one property.
type PropertySync struct {
	PropertyID string                     `json:"property_id"`
	Sources    []models.SourceSyncOutcome `json:"sources"`
}

// SyncSource fetches one source, parses it and replaces its stored events.
// On failure the source is marked as errored and a *CalendarError is returned.
func (s *SyncService) SyncSource(ctx context.Context, sourceID string) (*models.SyncResult, error) {
	if !s.acquire(sourceID) {
		return nil, busyError()
	}
	defer s.release(sourceID)

	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, asCalendarError(err)
	}
	if src == nil {
		return nil, notFoundError()
	}

	log.Printf("Syncing calendar source: %s (%s)", src.ID, src.SourceName)

	events, err := s.importSource(ctx, src)
	if err != nil {
		return nil, s.fail(ctx, src, err)
	}

	result := models.SyncResult{
		SourceID:    src.ID,
		SourceName:  src.SourceName,
		PropertyID:  src.PropertyID,
		Success:     true,
		EventsCount: len(events),
		Message:     fmt.Sprintf("%d événements synchronisés", len(events)),
		SyncedAt:    time.Now().UTC(),
	}
	log.Printf("Calendar source %s synced: %d events", src.ID, len(events))

	if s.notifier != nil {
		s.notifier.BroadcastCalendarSyncCompleted(result)
	}
	return &result, nil
}

func (s *SyncService) importSource(ctx context.Context, src *models.CalendarSource) ([]models.CalendarEvent, error) {
	raw, err := s.fetcher.Fetch(ctx, src.ICalURL)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0)
	seen := make(map[string]int)
	for pe := range parsed {
		ev := toCalendarEvent(src, pe)
		// a repeated UID replaces the earlier occurrence, as the upsert would
		if i, ok := seen[ev.UID]; ok && ev.UID != "" {
			events[i] = ev
			continue
		}
		seen[ev.UID] = len(events)
		events = append(events, ev)
	}

	if err := s.store.ReplaceSourceEvents(ctx, src.ID, events); err != nil {
		return nil, err
	}
	return events, nil
}

func toCalendarEvent(src *models.CalendarSource, pe ParsedEvent) models.CalendarEvent {
	platform := pe.Platform
	if platform.IsZero() {
		platform = models.OtherPlatform(src.SourceName)
	}
	sourceID := src.ID
	return models.CalendarEvent{
		PropertyID:  src.PropertyID,
		SourceID:    &sourceID,
		UID:         pe.UID,
		StartDate:   pe.StartDate,
		EndDate:     pe.EndDate,
		Summary:     pe.Summary,
		GuestName:   pe.GuestName,
		Platform:    platform,
		Status:      pe.Status,
		Description: pe.Description,
	}
}

// fail records the error on the source in its own write so it survives the
// rolled back reconciliation, even when ctx is already cancelled.
func (s *SyncService) fail(ctx context.Context, src *models.CalendarSource, err error) *CalendarError {
	ce := asCalendarError(err)
	log.Printf("Calendar sync failed for %s: %v", src.ID, err)

	if recErr := s.store.RecordSyncError(context.WithoutCancel(ctx), src.ID, ce.Message); recErr != nil {
		log.Printf("Failed to record sync error for %s: %v", src.ID, recErr)
	}
	if s.notifier != nil {
		s.notifier.BroadcastCalendarSyncError(src.ID, src.SourceName, ce)
	}
	return ce
}

// SyncProperty syncs every active source of a property. A failing source
// is reported in its outcome and does not stop the others. Outcomes keep
// the order of the sources.
func (s *SyncService) SyncProperty(ctx context.Context, propertyID string) ([]models.SourceSyncOutcome, error) {
	sources, err := s.store.ListActiveSources(ctx, propertyID)
	if err != nil {
		return nil, asCalendarError(err)
	}

	outcomes := make([]models.SourceSyncOutcome, len(sources))
	if s.concurrency < 2 {
		for i, src := range sources {
			outcomes[i] = s.syncOutcome(ctx, src)
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = s.syncOutcome(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, asCalendarError(err)
	}
	return outcomes, nil
}

func (s *SyncService) syncOutcome(ctx context.Context, src models.CalendarSource) models.SourceSyncOutcome {
	outcome := models.SourceSyncOutcome{SourceID: src.ID, SourceName: src.SourceName}

	result, err := s.SyncSource(ctx, src.ID)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.EventsCount = &result.EventsCount
	return outcome
}

// SyncAllActive syncs every property that owns an active source.
func (s *SyncService) SyncAllActive(ctx context.Context) ([]PropertySync, error) {
	propertyIDs, err := s.store.ListSyncablePropertyIDs(ctx)
	if err != nil {
		return nil, asCalendarError(err)
	}

	results := make([]PropertySync, 0, len(propertyIDs))
	for _, id := range propertyIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		outcomes, err := s.SyncProperty(ctx, id)
		if err != nil {
			log.Printf("Failed to sync property %s: %v", id, err)
			continue
		}
		results = append(results, PropertySync{PropertyID: id, Sources: outcomes})
	}
	return results, nil
}

// IsSyncing reports whether a sync of the source is in progress.
func (s *SyncService) IsSyncing(sourceID string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	_, ok := s.inFlight[sourceID]
	return ok
}

func (s *SyncService) acquire(sourceID string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, busy := s.inFlight[sourceID]; busy {
		return false
	}
	s.inFlight[sourceID] = struct{}{}
	return true
}

func (s *SyncService) release(sourceID string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, sourceID)
}
