package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/shelfsync/internal/entities"
)

func titles(books []entities.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestSort_TitleCaseInsensitive(t *testing.T) {
	books := []entities.Book{
		{Title: "zebra"},
		{Title: "Apple"},
		{Title: "mango"},
	}

	assert.Equal(t, []string{"Apple", "mango", "zebra"}, titles(Sorted(books, SortTitleAsc)))
	assert.Equal(t, []string{"zebra", "mango", "Apple"}, titles(Sorted(books, SortTitleDesc)))
}

func TestSort_AuthorFirstOnlyMissingSortsFirst(t *testing.T) {
	books := []entities.Book{
		{Title: "B", Authors: entities.StringList{"Zadie Smith", "Aaron Aardvark"}},
		{Title: "A", Authors: nil},
		{Title: "C", Authors: entities.StringList{"Frank Herbert"}},
	}

	sorted := Sorted(books, SortAuthorAsc)
	// Missing author compares as the empty string and sorts first; the
	// second author of "B" is ignored entirely.
	assert.Equal(t, []string{"A", "C", "B"}, titles(sorted))
}

func TestSort_MissingYearsGoLastBothDirections(t *testing.T) {
	books := []entities.Book{
		{Title: "NoYear1"},
		{Title: "Old", PublishYear: 1937},
		{Title: "NoYear2"},
		{Title: "New", PublishYear: 2001},
	}

	newest := Sorted(books, SortPublishYearNewest)
	require.Equal(t, []string{"New", "Old", "NoYear1", "NoYear2"}, titles(newest))

	oldest := Sorted(books, SortPublishYearOldest)
	require.Equal(t, []string{"Old", "New", "NoYear1", "NoYear2"}, titles(oldest))
}

func TestSort_DateAdded(t *testing.T) {
	books := []entities.Book{
		{Title: "Mid", DateAdded: 200},
		{Title: "Newest", DateAdded: 300},
		{Title: "Oldest", DateAdded: 100},
	}

	assert.Equal(t, []string{"Newest", "Mid", "Oldest"}, titles(Sorted(books, SortDateAddedNewest)))
	assert.Equal(t, []string{"Oldest", "Mid", "Newest"}, titles(Sorted(books, SortDateAddedOldest)))
}

func TestSort_Stable(t *testing.T) {
	books := []entities.Book{
		{Title: "Same", Key: "first", PublishYear: 1990},
		{Title: "Same", Key: "second", PublishYear: 1990},
	}

	sorted := Sorted(books, SortPublishYearNewest)
	assert.Equal(t, "first", sorted[0].Key)
	assert.Equal(t, "second", sorted[1].Key)
}

func TestSortOption_Valid(t *testing.T) {
	assert.True(t, SortTitleAsc.Valid())
	assert.True(t, DefaultSort.Valid())
	assert.False(t, SortOption("alphabetical").Valid())
}
