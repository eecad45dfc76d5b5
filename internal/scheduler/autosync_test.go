package scheduler

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/shelfsync/internal/database"
	dbsettings "github.com/openshelf/shelfsync/internal/database/settings"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/refresh"
	"github.com/openshelf/shelfsync/internal/settingsstore"
)

type countingSyncer struct {
	calls atomic.Int64
}

func (s *countingSyncer) SyncShelves(ctx context.Context, username string) ([]entities.Book, error) {
	s.calls.Add(1)
	return nil, nil
}

func setupScheduler(t *testing.T) (*AutoSyncScheduler, *settingsstore.SettingsStore, *countingSyncer, func()) {
	t.Helper()
	dbPath := "./test_scheduler_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	store := settingsstore.New(dbsettings.NewRepository(db))
	syncer := &countingSyncer{}
	coordinator := refresh.NewCoordinator(syncer, refresh.WithDebounce(time.Millisecond))
	scheduler := NewAutoSyncScheduler(coordinator, store)

	cleanup := func() {
		scheduler.Stop()
		db.Close()
		os.Remove(dbPath)
	}
	return scheduler, store, syncer, cleanup
}

func TestStart_DisabledWithoutUsername(t *testing.T) {
	scheduler, _, _, cleanup := setupScheduler(t)
	defer cleanup()

	t.Setenv("OPENSHELF_USERNAME", "")
	t.Setenv("OPENSHELF_AUTOSYNC_ENABLED", "")

	require.NoError(t, scheduler.Start(context.Background()))
	assert.False(t, scheduler.IsRunning())
	assert.Nil(t, scheduler.NextRunTime())
}

func TestStart_RunsWithUsername(t *testing.T) {
	scheduler, store, _, cleanup := setupScheduler(t)
	defer cleanup()

	t.Setenv("OPENSHELF_AUTOSYNC_ENABLED", "")
	t.Setenv("OPENSHELF_AUTOSYNC_SCHEDULE", "")
	require.NoError(t, store.SetUsername("mekBot"))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	next := scheduler.NextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
}

func TestStart_ContextCancellationStops(t *testing.T) {
	scheduler, store, _, cleanup := setupScheduler(t)
	defer cleanup()

	require.NoError(t, store.SetUsername("mekBot"))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))
	require.True(t, scheduler.IsRunning())

	cancel()
	assert.Eventually(t, func() bool {
		return !scheduler.IsRunning()
	}, time.Second, 10*time.Millisecond)
}

func TestRunNow_TriggersRefresh(t *testing.T) {
	scheduler, store, syncer, cleanup := setupScheduler(t)
	defer cleanup()

	require.NoError(t, store.SetUsername("mekBot"))

	scheduler.RunNow()
	assert.Eventually(t, func() bool {
		return syncer.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRunNow_SkipsWithoutUsername(t *testing.T) {
	scheduler, _, syncer, cleanup := setupScheduler(t)
	defer cleanup()

	t.Setenv("OPENSHELF_USERNAME", "")

	scheduler.RunNow()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, syncer.calls.Load())
}
