// Package books provides database operations for the cached book table: the
// Local Book Store of the sync and query engines.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	err := repo.UpsertAll(synced)
package books

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/entities"
)

// Snapshot is one emission of a watched query: the full result list or the
// error the read failed with.
type Snapshot struct {
	Books []entities.Book
	Err   error
}

// Repository handles all book table operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new books repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// upsertColumns are the fields a shelf sync is allowed to replace on
// conflict. Description and subjects stay untouched: they are only written
// by the detail-enrichment path and would otherwise be wiped on every sync.
var upsertColumns = []string{
	"title", "authors", "cover_url", "publish_year",
	"status", "work_key", "edition_key", "date_added", "updated_at",
}

// UpsertAll writes the batch with replace-on-key-conflict semantics,
// preserving batch order so that a later duplicate key wins.
func (r *Repository) UpsertAll(books []entities.Book) error {
	if len(books) == 0 {
		return nil
	}

	err := r.db.DB.Transaction(func(tx *gorm.DB) error {
		for i := range books {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			}).Create(&books[i]).Error
			if err != nil {
				return fmt.Errorf("upsert book %q: %w", books[i].Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.db.NotifyChanged()
	return nil
}

// UpdateDetails sets detail fields (description, subjects, publish year) on
// an existing record.
func (r *Repository) UpdateDetails(key string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.DB.Model(&entities.Book{}).Where("key = ?", key).Updates(fields).Error
	if err != nil {
		return err
	}
	r.db.NotifyChanged()
	return nil
}

// GetAll returns every cached book with favourite status joined in.
func (r *Repository) GetAll() ([]entities.Book, error) {
	var books []entities.Book
	if err := r.db.DB.Order("date_added DESC").Find(&books).Error; err != nil {
		return nil, err
	}
	return r.annotateFavourites(books)
}

// GetByStatus returns the cached books on one shelf.
func (r *Repository) GetByStatus(status entities.ReadingStatus) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.DB.Where("status = ?", status).Order("date_added DESC").Find(&books).Error
	if err != nil {
		return nil, err
	}
	return r.annotateFavourites(books)
}

// GetByKey returns a single cached book, or gorm.ErrRecordNotFound.
func (r *Repository) GetByKey(key string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.DB.Where("key = ?", key).First(&book).Error; err != nil {
		return nil, err
	}
	annotated, err := r.annotateFavourites([]entities.Book{book})
	if err != nil {
		return nil, err
	}
	return &annotated[0], nil
}

// Search matches the query case-insensitively against title or any author.
func (r *Repository) Search(query string) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + query + "%"
	err := r.db.DB.
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(authors) LIKE LOWER(?)", pattern, pattern).
		Order("date_added DESC").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return r.annotateFavourites(books)
}

// Count returns the number of cached books.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of cached books on one shelf.
func (r *Repository) CountByStatus(status entities.ReadingStatus) (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.Book{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// DeleteByKey removes one cached book; the favourite record, if any,
// cascades away with it.
func (r *Repository) DeleteByKey(key string) error {
	err := r.db.DB.Where("key = ?", key).Delete(&entities.Book{}).Error
	if err != nil {
		return err
	}
	r.db.NotifyChanged()
	return nil
}

// DeleteAll clears the whole cache.
func (r *Repository) DeleteAll() error {
	err := r.db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.Favourite{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&entities.Book{}).Error
	})
	if err != nil {
		return err
	}
	r.db.NotifyChanged()
	return nil
}

// WatchAll emits a snapshot of the full (unfiltered) cache immediately and
// again after every data change. Latest-wins: a slow consumer only sees the
// most recent snapshot.
func (r *Repository) WatchAll(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	changes := r.db.Changes().Subscribe(ctx)

	go func() {
		defer close(out)
		for {
			select {
			case _, ok := <-changes:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}

			books, err := r.GetAll()
			snap := Snapshot{Books: books, Err: err}
			select {
			case out <- snap:
			default:
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}
	}()

	return out
}

// annotateFavourites sets the derived IsFavorite flag by joining against the
// favourites table.
func (r *Repository) annotateFavourites(books []entities.Book) ([]entities.Book, error) {
	if len(books) == 0 {
		return books, nil
	}

	var keys []string
	if err := r.db.DB.Model(&entities.Favourite{}).Pluck("book_key", &keys).Error; err != nil {
		return nil, err
	}

	favs := make(map[string]bool, len(keys))
	for _, k := range keys {
		favs[k] = true
	}
	for i := range books {
		books[i].IsFavorite = favs[books[i].Key]
	}
	return books, nil
}
