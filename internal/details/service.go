// Package details fetches work/edition metadata on demand and merges it
// into cached books. The shelf-sync path never populates description or
// subjects; this is the only writer of those fields.
package details

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/openlibrary"
)

const workCacheSize = 256

// DetailFetcher is the work/edition half of the OpenLibrary client.
type DetailFetcher interface {
	FetchWork(ctx context.Context, workKey string) (*openlibrary.Work, error)
	FetchEdition(ctx context.Context, editionKey string) (*openlibrary.Edition, error)
}

// BookStore is the slice of the Local Book Store the service needs.
type BookStore interface {
	GetByKey(key string) (*entities.Book, error)
	UpdateDetails(key string, fields map[string]any) error
}

// Service enriches cached books with detail metadata. Concurrent requests
// for the same work collapse into one fetch, and responses are kept in a
// small LRU so detail screens reopen instantly.
type Service struct {
	client DetailFetcher
	store  BookStore

	group singleflight.Group
	cache *lru.Cache[string, *openlibrary.Work]
}

// NewService creates a detail-enrichment service.
func NewService(client DetailFetcher, store BookStore) (*Service, error) {
	cache, err := lru.New[string, *openlibrary.Work](workCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create work cache: %w", err)
	}
	return &Service{client: client, store: store, cache: cache}, nil
}

// EnrichBook fills description, subjects and a missing publish year for one
// cached book, persisting what it learned. Books without a work key are
// returned unchanged; there is nothing to fetch for them.
func (s *Service) EnrichBook(ctx context.Context, bookKey string) (*entities.Book, error) {
	book, err := s.store.GetByKey(bookKey)
	if err != nil {
		return nil, fmt.Errorf("load book %q: %w", bookKey, err)
	}
	if book.WorkKey == "" {
		return book, nil
	}

	work, err := s.fetchWork(ctx, book.WorkKey)
	if err != nil {
		return nil, fmt.Errorf("enrich %q: %w", bookKey, err)
	}

	fields := make(map[string]any)
	if desc := work.DescriptionText(); desc != "" && desc != book.Description {
		fields["description"] = desc
	}
	if len(work.Subjects) > 0 && len(book.Subjects) == 0 {
		fields["subjects"] = entities.StringList(work.Subjects)
	}

	if book.PublishYear == 0 && book.EditionKey != "" {
		if year := s.editionYear(ctx, book.EditionKey); year > 0 {
			fields["publish_year"] = year
		}
	}

	if len(fields) == 0 {
		return book, nil
	}
	if err := s.store.UpdateDetails(bookKey, fields); err != nil {
		return nil, fmt.Errorf("persist details for %q: %w", bookKey, err)
	}

	updated, err := s.store.GetByKey(bookKey)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// fetchWork loads a work document through the cache and singleflight group.
func (s *Service) fetchWork(ctx context.Context, workKey string) (*openlibrary.Work, error) {
	if work, ok := s.cache.Get(workKey); ok {
		return work, nil
	}

	v, err, _ := s.group.Do(workKey, func() (any, error) {
		work, err := s.client.FetchWork(ctx, workKey)
		if err != nil {
			return nil, err
		}
		s.cache.Add(workKey, work)
		return work, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*openlibrary.Work), nil
}

// editionYear extracts a publish year from the logged edition, best effort.
func (s *Service) editionYear(ctx context.Context, editionKey string) int {
	edition, err := s.client.FetchEdition(ctx, editionKey)
	if err != nil {
		log.Printf("details: edition %s unavailable: %v", editionKey, err)
		return 0
	}
	return extractYear(edition.PublishDate)
}

// extractYear pulls a plausible 4-digit year out of a free-form publish
// date like "May 1, 1996" or "1996".
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)

	formats := []string{"2006", "January 2, 2006", "Jan 2, 2006", "2006-01-02", "January 2006"}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	for i := 0; i+4 <= len(dateStr); i++ {
		if dateStr[i] < '0' || dateStr[i] > '9' {
			continue
		}
		var year int
		if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
			return year
		}
	}
	return 0
}
