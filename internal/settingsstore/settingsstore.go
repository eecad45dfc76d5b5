// Package settingsstore exposes typed accessors over the settings table.
// Resolution priority: database > environment > default.
package settingsstore

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openshelf/shelfsync/internal/database/settings"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/query"
)

// DefaultAutoSyncSchedule refreshes the shelves every 6 hours.
const DefaultAutoSyncSchedule = "0 */6 * * *"

type SettingsStore struct {
	repo *settings.Repository
}

func New(repo *settings.Repository) *SettingsStore {
	return &SettingsStore{repo: repo}
}

// GetUsername returns the OpenLibrary username to sync, or "" when none is
// configured anywhere.
func (s *SettingsStore) GetUsername() string {
	if value, ok := s.get(entities.SettingKeyUsername); ok {
		return value
	}
	return os.Getenv("OPENSHELF_USERNAME")
}

func (s *SettingsStore) SetUsername(username string) error {
	return s.repo.Set(entities.SettingKeyUsername, username)
}

// GetSortOption returns the persisted sort order. Unknown or missing values
// fall back to the default sort.
func (s *SettingsStore) GetSortOption() query.SortOption {
	value, ok := s.get(entities.SettingKeySortOption)
	if !ok {
		return query.DefaultSort
	}
	option := query.SortOption(value)
	if !option.Valid() {
		return query.DefaultSort
	}
	return option
}

func (s *SettingsStore) SetSortOption(option query.SortOption) error {
	return s.repo.Set(entities.SettingKeySortOption, string(option))
}

// GetFilterOptions returns the persisted filter state. Missing or corrupt
// values degrade to the default want-to-read shelf filter.
func (s *SettingsStore) GetFilterOptions() query.FilterOptions {
	defaults := query.FilterOptions{
		ReadingStatuses: []entities.ReadingStatus{entities.StatusWantToRead},
	}

	value, ok := s.get(entities.SettingKeyFilterOptions)
	if !ok {
		return defaults
	}

	var opts query.FilterOptions
	if err := json.Unmarshal([]byte(value), &opts); err != nil {
		log.Printf("settings: unreadable filter options, using defaults: %v", err)
		return defaults
	}
	return opts
}

func (s *SettingsStore) SetFilterOptions(opts query.FilterOptions) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	return s.repo.Set(entities.SettingKeyFilterOptions, string(data))
}

// GetDarkMode returns the persisted theme flag. Default: light.
func (s *SettingsStore) GetDarkMode() bool {
	value, ok := s.get(entities.SettingKeyDarkMode)
	if !ok {
		return false
	}
	return value == "true" || value == "1"
}

func (s *SettingsStore) SetDarkMode(enabled bool) error {
	return s.repo.Set(entities.SettingKeyDarkMode, strconv.FormatBool(enabled))
}

// GetAutoSyncEnabled reports whether the periodic shelf refresh runs.
// Default: enabled once a username is configured.
func (s *SettingsStore) GetAutoSyncEnabled() bool {
	if value, ok := s.get(entities.SettingKeyAutoSyncEnabled); ok {
		return value == "true" || value == "1"
	}
	if envVal := os.Getenv("OPENSHELF_AUTOSYNC_ENABLED"); envVal != "" {
		return envVal == "true" || envVal == "1"
	}
	return s.GetUsername() != ""
}

func (s *SettingsStore) SetAutoSyncEnabled(enabled bool) error {
	return s.repo.Set(entities.SettingKeyAutoSyncEnabled, strconv.FormatBool(enabled))
}

// GetAutoSyncSchedule returns the cron expression for the periodic refresh.
// Invalid persisted values fall back to the default schedule.
func (s *SettingsStore) GetAutoSyncSchedule() string {
	value, ok := s.get(entities.SettingKeyAutoSyncCron)
	if !ok || value == "" {
		if envVal := os.Getenv("OPENSHELF_AUTOSYNC_SCHEDULE"); envVal != "" {
			value = envVal
		} else {
			return DefaultAutoSyncSchedule
		}
	}
	if err := ValidateCronSchedule(value); err != nil {
		log.Printf("settings: invalid auto-sync schedule %q, using default: %v", value, err)
		return DefaultAutoSyncSchedule
	}
	return value
}

func (s *SettingsStore) SetAutoSyncSchedule(schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return err
	}
	return s.repo.Set(entities.SettingKeyAutoSyncCron, schedule)
}

// GetLastSyncAt returns when the last successful refresh finished, or nil.
func (s *SettingsStore) GetLastSyncAt() *time.Time {
	value, ok := s.get(entities.SettingKeyLastSyncAt)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func (s *SettingsStore) SetLastSyncAt(t time.Time) error {
	return s.repo.Set(entities.SettingKeyLastSyncAt, t.UTC().Format(time.RFC3339))
}

// get reads a non-empty setting value, logging lookup failures.
func (s *SettingsStore) get(key string) (string, bool) {
	value, ok, err := s.repo.Get(key)
	if err != nil {
		log.Printf("settings: read %s: %v", key, err)
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ValidateCronSchedule checks a standard 5-field cron expression.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime calculates the next fire time for a schedule.
func NextRunTime(schedule string) (*time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}
