package calendar

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSyncInterval is used when no interval is configured.
const DefaultSyncInterval = 30 * time.Minute

// Scheduler periodically syncs every active calendar source. It only
// triggers the sync service; it holds no sync state of its own.
type Scheduler struct {
	cron        *cron.Cron
	syncService *SyncService
	interval    time.Duration

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
	lastRun time.Time
}

// NewScheduler creates a new calendar sync scheduler. A zero interval
// uses DefaultSyncInterval.
func NewScheduler(syncService *SyncService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		syncService: syncService,
		interval:    interval,
	}
}

// Start registers the sync job and starts the cron runner.
func (s *Scheduler) Start() error {
	log.Println("Starting calendar sync scheduler...")

	id, err := s.cron.AddFunc(intervalToCronSpec(s.interval), func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entryID = id
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("Calendar scheduler started, syncing every %s", s.interval)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running sync.
func (s *Scheduler) Stop() {
	log.Println("Stopping calendar sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Calendar scheduler stopped")
}

// RunOnce syncs all active sources now. Overlapping calls are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("Scheduled calendar sync still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now().UTC()
		s.mu.Unlock()
	}()

	results, err := s.syncService.SyncAllActive(ctx)
	if err != nil {
		log.Printf("Scheduled calendar sync failed: %v", err)
		return
	}

	var ok, failed int
	for _, p := range results {
		for _, src := range p.Sources {
			if src.Success {
				ok++
			} else {
				failed++
			}
		}
	}
	log.Printf("Scheduled calendar sync completed: %d properties, %d sources ok, %d failed",
		len(results), ok, failed)
}

// LastRun returns when the last scheduled sync finished, or the zero time.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRun returns the next scheduled run time, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()

	if id == 0 {
		return nil
	}
	entry := s.cron.Entry(id)
	if entry.Next.IsZero() {
		return nil
	}
	return &entry.Next
}

func intervalToCronSpec(d time.Duration) string {
	return "@every " + d.String()
}
