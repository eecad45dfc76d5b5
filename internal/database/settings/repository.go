// Package settings provides database operations for persisted application
// settings. Values are best effort: callers fall back to defaults when a
// key is missing or unreadable.
package settings

import (
	"errors"

	"gorm.io/gorm"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/entities"
)

// Repository handles all settings table operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new settings repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Get retrieves a setting value by key; ok is false when the key is absent.
func (r *Repository) Get(key string) (string, bool, error) {
	var setting entities.Setting
	err := r.db.DB.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// Set creates or updates a setting.
func (r *Repository) Set(key, value string) error {
	var setting entities.Setting
	result := r.db.DB.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{Key: key, Value: value}
		return r.db.DB.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.DB.Save(&setting).Error
}

// Delete removes a setting by key.
func (r *Repository) Delete(key string) error {
	return r.db.DB.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
