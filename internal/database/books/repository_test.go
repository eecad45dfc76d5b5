package books

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, *Repository, func()) {
	t.Helper()
	dbPath := "./test_books_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, NewRepository(db), cleanup
}

func sampleBook(key string, status entities.ReadingStatus) entities.Book {
	return entities.Book{
		Key:       key,
		Title:     "Dune",
		Authors:   entities.StringList{"Frank Herbert"},
		Status:    status,
		DateAdded: 1000,
	}
}

func TestUpsertAll_RepeatedSyncConverges(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := sampleBook("dune_frank_herbert", entities.StatusWantToRead)
	require.NoError(t, repo.UpsertAll([]entities.Book{book}))
	require.NoError(t, repo.UpsertAll([]entities.Book{book}))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertAll_ShelfChangeWins(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.UpsertAll([]entities.Book{
		sampleBook("dune_frank_herbert", entities.StatusWantToRead),
	}))
	require.NoError(t, repo.UpsertAll([]entities.Book{
		sampleBook("dune_frank_herbert", entities.StatusAlreadyRead),
	}))

	got, err := repo.GetByKey("dune_frank_herbert")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusAlreadyRead, got.Status)
}

func TestUpsertAll_PreservesDetailFields(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.UpsertAll([]entities.Book{
		sampleBook("dune_frank_herbert", entities.StatusWantToRead),
	}))
	require.NoError(t, repo.UpdateDetails("dune_frank_herbert", map[string]any{
		"description": "A desert planet saga.",
		"subjects":    entities.StringList{"Science fiction"},
	}))

	// A later sync of the same book must not wipe enriched fields
	require.NoError(t, repo.UpsertAll([]entities.Book{
		sampleBook("dune_frank_herbert", entities.StatusWantToRead),
	}))

	got, err := repo.GetByKey("dune_frank_herbert")
	require.NoError(t, err)
	assert.Equal(t, "A desert planet saga.", got.Description)
	assert.Equal(t, entities.StringList{"Science fiction"}, got.Subjects)
}

func TestGetByKey_NotFound(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByKey("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSearch_MatchesTitleAndAuthor(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.UpsertAll([]entities.Book{
		{Key: "dune_frank_herbert", Title: "Dune", Authors: entities.StringList{"Frank Herbert"}, Status: entities.StatusWantToRead},
		{Key: "the_hobbit_j.r.r._tolkien", Title: "The Hobbit", Authors: entities.StringList{"J.R.R. Tolkien"}, Status: entities.StatusAlreadyRead},
	}))

	byTitle, err := repo.Search("dune")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Dune", byTitle[0].Title)

	byAuthor, err := repo.Search("tolkien")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "The Hobbit", byAuthor[0].Title)
}

func TestGetByStatus(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.UpsertAll([]entities.Book{
		{Key: "a", Title: "A", Status: entities.StatusWantToRead},
		{Key: "b", Title: "B", Status: entities.StatusCurrentlyReading},
		{Key: "c", Title: "C", Status: entities.StatusWantToRead},
	}))

	want, err := repo.GetByStatus(entities.StatusWantToRead)
	require.NoError(t, err)
	assert.Len(t, want, 2)

	count, err := repo.CountByStatus(entities.StatusCurrentlyReading)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteByKey_CascadesFavourite(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.UpsertAll([]entities.Book{
		sampleBook("dune_frank_herbert", entities.StatusWantToRead),
	}))
	require.NoError(t, db.DB.Create(&entities.Favourite{
		BookKey:   "dune_frank_herbert",
		DateAdded: 42,
	}).Error)

	require.NoError(t, repo.DeleteByKey("dune_frank_herbert"))

	var favCount int64
	require.NoError(t, db.DB.Model(&entities.Favourite{}).Count(&favCount).Error)
	assert.Zero(t, favCount)
}

func TestAnnotateFavourites(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.UpsertAll([]entities.Book{
		{Key: "a", Title: "A", Status: entities.StatusWantToRead},
		{Key: "b", Title: "B", Status: entities.StatusWantToRead},
	}))
	require.NoError(t, db.DB.Create(&entities.Favourite{BookKey: "b", DateAdded: 42}).Error)

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 2)

	flags := map[string]bool{}
	for _, b := range all {
		flags[b.Key] = b.IsFavorite
	}
	assert.False(t, flags["a"])
	assert.True(t, flags["b"])
}

func TestWatchAll_EmitsOnChange(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := repo.WatchAll(ctx)

	// Initial snapshot of the empty cache
	select {
	case snap := <-snapshots:
		require.NoError(t, snap.Err)
		assert.Empty(t, snap.Books)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	require.NoError(t, repo.UpsertAll([]entities.Book{
		sampleBook("dune_frank_herbert", entities.StatusWantToRead),
	}))

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-snapshots:
			require.NoError(t, snap.Err)
			if len(snap.Books) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no snapshot after upsert")
		}
	}
}
