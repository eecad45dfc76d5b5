// Package favourites provides database operations for favourite book
// records: the Local Favourites Store.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	nowFav, err := repo.Toggle("dune_frank_herbert", time.Now().UnixMilli())
package favourites

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/entities"
)

// Snapshot is one emission of the watched joined favourites list.
type Snapshot struct {
	Books []entities.Book
	Err   error
}

// Repository handles all favourites table operations.
type Repository struct {
	db *database.Database
}

// NewRepository creates a new favourites repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Insert records a favourite, replacing any existing record for the key.
func (r *Repository) Insert(record entities.Favourite) error {
	err := r.db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_key"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err != nil {
		return err
	}
	r.db.NotifyChanged()
	return nil
}

// Delete removes the favourite record for a key, if present.
func (r *Repository) Delete(key string) error {
	err := r.db.DB.Where("book_key = ?", key).Delete(&entities.Favourite{}).Error
	if err != nil {
		return err
	}
	r.db.NotifyChanged()
	return nil
}

// Toggle flips the favourite state of a key atomically and returns the new
// persisted state.
func (r *Repository) Toggle(key string, dateAdded int64) (bool, error) {
	var nowFavourite bool
	err := r.db.DB.Transaction(func(tx *gorm.DB) error {
		var existing entities.Favourite
		err := tx.Where("book_key = ?", key).First(&existing).Error
		switch {
		case err == nil:
			nowFavourite = false
			return tx.Where("book_key = ?", key).Delete(&entities.Favourite{}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			nowFavourite = true
			return tx.Create(&entities.Favourite{BookKey: key, DateAdded: dateAdded}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}

	r.db.NotifyChanged()
	return nowFavourite, nil
}

// IsFavourite reports the persisted favourite state of a key.
func (r *Repository) IsFavourite(key string) (bool, error) {
	var count int64
	err := r.db.DB.Model(&entities.Favourite{}).Where("book_key = ?", key).Count(&count).Error
	return count > 0, err
}

// GetAllJoined returns favourite books joined back to their cache records,
// most recently favourited first. Favourites whose book has been deleted
// from the cache are simply absent from the join.
func (r *Repository) GetAllJoined() ([]entities.Book, error) {
	return r.joined(0)
}

// GetRecentJoined returns at most limit favourite books, most recent first.
func (r *Repository) GetRecentJoined(limit int) ([]entities.Book, error) {
	return r.joined(limit)
}

func (r *Repository) joined(limit int) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.DB.Model(&entities.Book{}).
		Joins("JOIN favourites ON favourites.book_key = books.key").
		Order("favourites.date_added DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&books).Error; err != nil {
		return nil, err
	}
	for i := range books {
		books[i].IsFavorite = true
	}
	return books, nil
}

// Count returns the number of favourite records.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.DB.Model(&entities.Favourite{}).Count(&count).Error
	return count, err
}

// DeleteAll clears every favourite record.
func (r *Repository) DeleteAll() error {
	err := r.db.DB.Where("1 = 1").Delete(&entities.Favourite{}).Error
	if err != nil {
		return err
	}
	r.db.NotifyChanged()
	return nil
}

// WatchAllJoined emits the joined favourites list immediately and after
// every data change, latest-wins.
func (r *Repository) WatchAllJoined(ctx context.Context) <-chan Snapshot {
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

			books, err := r.GetAllJoined()
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
