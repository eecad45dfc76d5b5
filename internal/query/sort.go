package query

import (
	"sort"
	"strings"

	"github.com/openshelf/shelfsync/internal/entities"
)

// SortOption is the closed set of supported orderings.
type SortOption string

const (
	SortTitleAsc          SortOption = "title_asc"
	SortTitleDesc         SortOption = "title_desc"
	SortAuthorAsc         SortOption = "author_asc"
	SortAuthorDesc        SortOption = "author_desc"
	SortPublishYearNewest SortOption = "publish_year_newest"
	SortPublishYearOldest SortOption = "publish_year_oldest"
	SortDateAddedNewest   SortOption = "date_added_newest"
	SortDateAddedOldest   SortOption = "date_added_oldest"
)

// DefaultSort is the ordering used when no preference is stored.
const DefaultSort = SortDateAddedNewest

// Valid reports whether s is a known sort option.
func (s SortOption) Valid() bool {
	switch s {
	case SortTitleAsc, SortTitleDesc, SortAuthorAsc, SortAuthorDesc,
		SortPublishYearNewest, SortPublishYearOldest,
		SortDateAddedNewest, SortDateAddedOldest:
		return true
	}
	return false
}

// Sort orders books in place, stably, according to the option.
//
// Title and author orders compare case-insensitively; the author order uses
// the first author only, with a missing author sorting first as the empty
// string. Books without a publish year go to the end under both year
// orders.
func Sort(books []entities.Book, option SortOption) {
	sort.SliceStable(books, func(i, j int) bool {
		return less(books[i], books[j], option)
	})
}

// Sorted returns a sorted copy, leaving the input untouched.
func Sorted(books []entities.Book, option SortOption) []entities.Book {
	out := make([]entities.Book, len(books))
	copy(out, books)
	Sort(out, option)
	return out
}

func less(a, b entities.Book, option SortOption) bool {
	switch option {
	case SortTitleAsc:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case SortTitleDesc:
		return strings.ToLower(a.Title) > strings.ToLower(b.Title)
	case SortAuthorAsc:
		return strings.ToLower(a.FirstAuthor()) < strings.ToLower(b.FirstAuthor())
	case SortAuthorDesc:
		return strings.ToLower(a.FirstAuthor()) > strings.ToLower(b.FirstAuthor())
	case SortPublishYearNewest:
		return lessByYear(a, b, true)
	case SortPublishYearOldest:
		return lessByYear(a, b, false)
	case SortDateAddedOldest:
		return a.DateAdded < b.DateAdded
	default: // SortDateAddedNewest
		return a.DateAdded > b.DateAdded
	}
}

// lessByYear pushes missing years to the end regardless of direction.
func lessByYear(a, b entities.Book, newestFirst bool) bool {
	aMissing := a.PublishYear == 0
	bMissing := b.PublishYear == 0
	switch {
	case aMissing && bMissing:
		return false
	case aMissing:
		return false
	case bMissing:
		return true
	case newestFirst:
		return a.PublishYear > b.PublishYear
	default:
		return a.PublishYear < b.PublishYear
	}
}
