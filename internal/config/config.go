package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		OpenLibrary
		Refresh
		AutoSync
		Tasks
		Covers
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	OpenLibrary struct {
		BaseURL  string
		Username string
	}
	Refresh struct {
		Debounce time.Duration
	}
	AutoSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Covers struct {
		CacheDir string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8177)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("openlibrary_base_url", "https://openlibrary.org")
	v.SetDefault("openshelf_username", "")
	v.SetDefault("refresh_debounce", "500ms")
	v.SetDefault("openshelf_autosync_enabled", false)
	v.SetDefault("openshelf_autosync_schedule", "0 */6 * * *")
	v.SetDefault("covers_cache_dir", DefaultCoversDir)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		OpenLibrary: OpenLibrary{
			BaseURL:  v.GetString("OPENLIBRARY_BASE_URL"),
			Username: v.GetString("OPENSHELF_USERNAME"),
		},
		Refresh: Refresh{
			Debounce: v.GetDuration("REFRESH_DEBOUNCE"),
		},
		AutoSync: AutoSync{
			Enabled:  v.GetBool("OPENSHELF_AUTOSYNC_ENABLED"),
			Schedule: v.GetString("OPENSHELF_AUTOSYNC_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Covers: Covers{
			CacheDir: v.GetString("COVERS_CACHE_DIR"),
		},
	}
}
