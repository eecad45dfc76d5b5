// Package query holds the pure filter/sort policy and the reactive engine
// that combines the cached book stream with the current criteria.
package query

import (
	"strings"

	"github.com/openshelf/shelfsync/internal/entities"
)

// FilterOptions is the combinable filter state held by the UI session. Sub-
// criteria compose with AND semantics; unset criteria match everything.
type FilterOptions struct {
	ReadingStatuses []entities.ReadingStatus `json:"reading_statuses,omitempty"`
	IsFavorite      *bool                    `json:"is_favorite,omitempty"`
	SearchQuery     string                   `json:"search_query,omitempty"`
	Authors         []string                 `json:"authors,omitempty"`
	Subjects        []string                 `json:"subjects,omitempty"`
	YearFrom        *int                     `json:"year_from,omitempty"`
	YearTo          *int                     `json:"year_to,omitempty"`
}

// IsEmpty reports whether no sub-criterion is set.
func (f FilterOptions) IsEmpty() bool {
	return len(f.ReadingStatuses) == 0 &&
		f.IsFavorite == nil &&
		f.SearchQuery == "" &&
		len(f.Authors) == 0 &&
		len(f.Subjects) == 0 &&
		f.YearFrom == nil &&
		f.YearTo == nil
}

// Matches reports whether the book satisfies every set sub-criterion.
func (f FilterOptions) Matches(b entities.Book) bool {
	return f.matchesStatus(b) &&
		f.matchesFavourite(b) &&
		f.matchesSearch(b) &&
		f.matchesAuthors(b) &&
		f.matchesSubjects(b) &&
		f.matchesYears(b)
}

func (f FilterOptions) matchesStatus(b entities.Book) bool {
	if len(f.ReadingStatuses) == 0 {
		return true
	}
	for _, status := range f.ReadingStatuses {
		if b.Status == status {
			return true
		}
	}
	return false
}

func (f FilterOptions) matchesFavourite(b entities.Book) bool {
	return f.IsFavorite == nil || b.IsFavorite == *f.IsFavorite
}

// matchesSearch matches the free-text query against the title or any author,
// case-insensitive substring.
func (f FilterOptions) matchesSearch(b entities.Book) bool {
	if f.SearchQuery == "" {
		return true
	}
	q := strings.ToLower(f.SearchQuery)
	if strings.Contains(strings.ToLower(b.Title), q) {
		return true
	}
	for _, author := range b.Authors {
		if strings.Contains(strings.ToLower(author), q) {
			return true
		}
	}
	return false
}

// matchesAuthors requires each requested author name to be a substring of
// some author of the book.
func (f FilterOptions) matchesAuthors(b entities.Book) bool {
	for _, wanted := range f.Authors {
		if !anyContains(b.Authors, wanted) {
			return false
		}
	}
	return true
}

// matchesSubjects requires each requested subject to be a substring of some
// subject of the book.
func (f FilterOptions) matchesSubjects(b entities.Book) bool {
	for _, wanted := range f.Subjects {
		if !anyContains(b.Subjects, wanted) {
			return false
		}
	}
	return true
}

// matchesYears applies inclusive bounds. A book without a publish year fails
// any bound that is actually set.
func (f FilterOptions) matchesYears(b entities.Book) bool {
	if f.YearFrom == nil && f.YearTo == nil {
		return true
	}
	if b.PublishYear == 0 {
		return false
	}
	if f.YearFrom != nil && b.PublishYear < *f.YearFrom {
		return false
	}
	if f.YearTo != nil && b.PublishYear > *f.YearTo {
		return false
	}
	return true
}

func anyContains(haystacks []string, needle string) bool {
	n := strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), n) {
			return true
		}
	}
	return false
}

// Filter returns the books satisfying the filter, preserving input order.
func Filter(books []entities.Book, f FilterOptions) []entities.Book {
	out := make([]entities.Book, 0, len(books))
	for _, b := range books {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}
