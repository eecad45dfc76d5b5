package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./shelfsync.db"

	// DefaultCoversDir is the default directory for cached cover images
	DefaultCoversDir = "./covers"
)
