package entities

// Setting keys.
const (
	SettingKeyUsername        = "openlibrary_username"
	SettingKeySortOption      = "sort_option"
	SettingKeyFilterOptions   = "filter_options"
	SettingKeyDarkMode        = "dark_mode"
	SettingKeyAutoSyncEnabled = "auto_sync_enabled"
	SettingKeyAutoSyncCron    = "auto_sync_schedule"
	SettingKeyLastSyncAt      = "last_sync_at"
)
