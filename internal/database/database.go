// Package database owns the sqlite-backed persistent cache: connection
// setup, schema migration and the change notifier that drives the reactive
// read paths.
package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/stream"
)

// Database wraps the gorm connection and a single change stream shared by
// all repositories. Every committed mutation publishes one change signal;
// watchers re-query and emit fresh snapshots.
type Database struct {
	DB      *gorm.DB
	changes *stream.Stream[struct{}]
}

// NewDatabase opens (or creates) the sqlite database at dbPath and migrates
// the schema. Foreign keys are enabled so book deletes cascade to
// favourites.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&entities.Book{},
		&entities.Favourite{},
		&entities.Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{
		DB:      db,
		changes: stream.NewWithInitial(struct{}{}),
	}, nil
}

// Changes returns the shared data-change stream.
func (d *Database) Changes() *stream.Stream[struct{}] {
	return d.changes
}

// NotifyChanged publishes a change signal. Repositories call this after
// every successful mutation.
func (d *Database) NotifyChanged() {
	d.changes.Publish(struct{}{})
}

// Close closes the underlying sql connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
