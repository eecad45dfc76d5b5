// Package scheduler runs the periodic shelf refresh on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openshelf/shelfsync/internal/refresh"
	"github.com/openshelf/shelfsync/internal/settingsstore"
)

// AutoSyncScheduler triggers shelf refreshes in the background so the cache
// stays warm without the user pulling to refresh.
type AutoSyncScheduler struct {
	coordinator   *refresh.Coordinator
	settingsStore *settingsstore.SettingsStore

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAutoSyncScheduler creates a scheduler instance.
func NewAutoSyncScheduler(coordinator *refresh.Coordinator, settingsStore *settingsstore.SettingsStore) *AutoSyncScheduler {
	return &AutoSyncScheduler{
		coordinator:   coordinator,
		settingsStore: settingsStore,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler when auto sync is enabled and a username is set.
func (s *AutoSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.settingsStore.GetAutoSyncEnabled() {
		log.Printf("Auto sync scheduler: disabled")
		return nil
	}

	if s.settingsStore.GetUsername() == "" {
		log.Printf("Auto sync scheduler: no username configured, skipping")
		return nil
	}

	schedule := s.settingsStore.GetAutoSyncSchedule()
	if err := settingsstore.ValidateCronSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.NextRunTime(schedule)
	log.Printf("Auto sync scheduler: started with schedule '%s'. Next run: %v", schedule, nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *AutoSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Auto sync scheduler: stopped")
}

// Reschedule restarts the scheduler with the current settings. Call after
// the schedule or enabled flag changes.
func (s *AutoSyncScheduler) Reschedule() error {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}
	return s.Start(context.Background())
}

// RunNow triggers an immediate refresh.
func (s *AutoSyncScheduler) RunNow() {
	go s.runSync()
}

// IsRunning reports whether the scheduler is active.
func (s *AutoSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next refresh will fire, or nil when stopped.
func (s *AutoSyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *AutoSyncScheduler) runSync() {
	username := s.settingsStore.GetUsername()
	if username == "" {
		log.Printf("Auto sync: no username configured, skipping run")
		return
	}
	log.Printf("Auto sync: refreshing shelves for %s", username)
	s.coordinator.Refresh(username)
}
