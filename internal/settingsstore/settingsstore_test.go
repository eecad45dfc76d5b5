package settingsstore

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/database/settings"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/query"
)

func setupStore(t *testing.T) (*SettingsStore, *settings.Repository, func()) {
	t.Helper()
	dbPath := "./test_settings_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repo := settings.NewRepository(db)
	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return New(repo), repo, cleanup
}

func TestGetUsername(t *testing.T) {
	t.Run("returns database value when set", func(t *testing.T) {
		store, repo, cleanup := setupStore(t)
		defer cleanup()

		require.NoError(t, repo.Set(entities.SettingKeyUsername, "mekBot"))
		assert.Equal(t, "mekBot", store.GetUsername())
	})

	t.Run("falls back to environment", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		t.Setenv("OPENSHELF_USERNAME", "envuser")
		assert.Equal(t, "envuser", store.GetUsername())
	})

	t.Run("empty when unconfigured", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		t.Setenv("OPENSHELF_USERNAME", "")
		assert.Empty(t, store.GetUsername())
	})
}

func TestGetSortOption(t *testing.T) {
	t.Run("default when missing", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		assert.Equal(t, query.DefaultSort, store.GetSortOption())
	})

	t.Run("default when unknown value persisted", func(t *testing.T) {
		store, repo, cleanup := setupStore(t)
		defer cleanup()

		require.NoError(t, repo.Set(entities.SettingKeySortOption, "by_vibes"))
		assert.Equal(t, query.DefaultSort, store.GetSortOption())
	})

	t.Run("round trips a valid option", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		require.NoError(t, store.SetSortOption(query.SortTitleAsc))
		assert.Equal(t, query.SortTitleAsc, store.GetSortOption())
	})
}

func TestGetFilterOptions(t *testing.T) {
	t.Run("default is the want-to-read shelf", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		opts := store.GetFilterOptions()
		assert.Equal(t, []entities.ReadingStatus{entities.StatusWantToRead}, opts.ReadingStatuses)
	})

	t.Run("corrupt JSON degrades to default", func(t *testing.T) {
		store, repo, cleanup := setupStore(t)
		defer cleanup()

		require.NoError(t, repo.Set(entities.SettingKeyFilterOptions, "{not json"))
		opts := store.GetFilterOptions()
		assert.Equal(t, []entities.ReadingStatus{entities.StatusWantToRead}, opts.ReadingStatuses)
	})

	t.Run("round trips filter state", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		fav := true
		in := query.FilterOptions{
			ReadingStatuses: []entities.ReadingStatus{entities.StatusAlreadyRead},
			IsFavorite:      &fav,
			SearchQuery:     "dune",
		}
		require.NoError(t, store.SetFilterOptions(in))

		out := store.GetFilterOptions()
		assert.Equal(t, in, out)
	})
}

func TestAutoSyncSettings(t *testing.T) {
	t.Run("enabled defaults to whether a username exists", func(t *testing.T) {
		store, repo, cleanup := setupStore(t)
		defer cleanup()

		t.Setenv("OPENSHELF_USERNAME", "")
		t.Setenv("OPENSHELF_AUTOSYNC_ENABLED", "")
		assert.False(t, store.GetAutoSyncEnabled())

		require.NoError(t, repo.Set(entities.SettingKeyUsername, "mekBot"))
		assert.True(t, store.GetAutoSyncEnabled())
	})

	t.Run("invalid schedule falls back to default", func(t *testing.T) {
		store, repo, cleanup := setupStore(t)
		defer cleanup()

		t.Setenv("OPENSHELF_AUTOSYNC_SCHEDULE", "")
		require.NoError(t, repo.Set(entities.SettingKeyAutoSyncCron, "every full moon"))
		assert.Equal(t, DefaultAutoSyncSchedule, store.GetAutoSyncSchedule())
	})

	t.Run("rejects invalid schedule on write", func(t *testing.T) {
		store, _, cleanup := setupStore(t)
		defer cleanup()

		assert.Error(t, store.SetAutoSyncSchedule("nope"))
		require.NoError(t, store.SetAutoSyncSchedule("*/30 * * * *"))
		assert.Equal(t, "*/30 * * * *", store.GetAutoSyncSchedule())
	})
}

func TestLastSyncAt(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	assert.Nil(t, store.GetLastSyncAt())

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, store.SetLastSyncAt(now))

	got := store.GetLastSyncAt()
	require.NotNil(t, got)
	assert.True(t, got.Equal(now))
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 */6 * * *"))
	assert.Error(t, ValidateCronSchedule("61 * * * *"))
}
