// Package sync reconciles the three remote OpenLibrary shelves with the
// local book cache.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openshelf/shelfsync/internal/bookkey"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/openlibrary"
)

// loggedDateLayout is the timestamp format of reading-log entries.
const loggedDateLayout = "2006/01/02, 15:04:05"

// ErrAllShelvesFailed is returned when not a single shelf fetch succeeded.
// Partial failures never surface: any shelf that fails alone degrades to an
// empty contribution.
var ErrAllShelvesFailed = errors.New("sync: all shelf fetches failed")

// ShelfFetcher fetches one page of one reading-log shelf.
type ShelfFetcher interface {
	FetchShelf(ctx context.Context, username string, shelf openlibrary.Shelf, page int) ([]openlibrary.ReadingLogEntry, error)
}

// BookWriter is the upsert half of the Local Book Store.
type BookWriter interface {
	UpsertAll(books []entities.Book) error
}

// Engine orchestrates a full shelf sync: concurrent fetch, mapping, keying,
// cover resolution and one batch upsert.
type Engine struct {
	client ShelfFetcher
	store  BookWriter
	now    func() time.Time
}

// NewEngine creates a sync engine.
func NewEngine(client ShelfFetcher, store BookWriter) *Engine {
	return &Engine{client: client, store: store, now: time.Now}
}

// SyncShelves fetches all three shelves concurrently, maps their entries to
// cached books and upserts the combined batch.
//
// A failed shelf contributes an empty list; the error return is non-nil only
// when every shelf failed (returned as ErrAllShelvesFailed wrapping the
// first failure) or the batch upsert itself failed. The returned list is
// informational: the system of record is the store, read back reactively.
func (e *Engine) SyncShelves(ctx context.Context, username string) ([]entities.Book, error) {
	shelfEntries := make([][]openlibrary.ReadingLogEntry, len(openlibrary.Shelves))
	shelfErrs := make([]error, len(openlibrary.Shelves))

	g, gctx := errgroup.WithContext(ctx)
	for i, shelf := range openlibrary.Shelves {
		g.Go(func() error {
			entries, err := e.client.FetchShelf(gctx, username, shelf, 1)
			if err != nil {
				// Degrade to an empty shelf; never abort the others.
				log.Printf("sync: %s shelf for %q failed: %v", shelf, username, err)
				shelfErrs[i] = err
				return nil
			}
			shelfEntries[i] = entries
			return nil
		})
	}
	// Group functions never return errors; Wait is a pure barrier so the
	// batch upsert only happens after every shelf settled.
	_ = g.Wait()

	failures := 0
	for _, err := range shelfErrs {
		if err != nil {
			failures++
		}
	}
	if failures == len(openlibrary.Shelves) {
		return nil, fmt.Errorf("%w: %w", ErrAllShelvesFailed, firstError(shelfErrs))
	}

	// Concatenate in fixed shelf order. No cross-shelf de-duplication: a
	// book on two shelves upserts the same key twice and the later shelf
	// wins.
	var books []entities.Book
	for i, shelf := range openlibrary.Shelves {
		for _, entry := range shelfEntries[i] {
			book, err := e.mapEntry(entry, shelf)
			if err != nil {
				log.Printf("sync: skipping malformed %s entry: %v", shelf, err)
				continue
			}
			books = append(books, book)
		}
	}

	if err := e.store.UpsertAll(books); err != nil {
		return nil, fmt.Errorf("sync: upsert batch: %w", err)
	}

	log.Printf("sync: synced %d books for %q (%d shelves degraded)", len(books), username, failures)
	return books, nil
}

// mapEntry turns one raw shelf record into a cached book. Blank titles and
// missing authors fall back to sentinels; an entry with nothing to identify
// it at all is a validation error and is skipped by the caller.
func (e *Engine) mapEntry(entry openlibrary.ReadingLogEntry, shelf openlibrary.Shelf) (entities.Book, error) {
	work := entry.Work
	if work.Title == "" && len(work.AuthorNames) == 0 && work.Key == "" {
		return entities.Book{}, errors.New("entry carries no title, authors or work key")
	}

	title := work.Title
	if title == "" {
		title = bookkey.SentinelTitle
	}
	authors := make([]string, 0, len(work.AuthorNames))
	for _, name := range work.AuthorNames {
		if name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		authors = []string{bookkey.SentinelAuthor}
	}

	return entities.Book{
		Key:         bookkey.Generate(title, authors),
		Title:       title,
		Authors:     authors,
		CoverURL:    openlibrary.CoverURL(work.CoverID),
		PublishYear: work.FirstPublishYear,
		Status:      shelf.ReadingStatus(),
		WorkKey:     openlibrary.NormalizeWorkKey(work.Key),
		EditionKey:  openlibrary.NormalizeEditionKey(entry.LoggedEdition),
		DateAdded:   e.loggedDateMillis(entry.LoggedDate),
	}, nil
}

// loggedDateMillis parses the entry's logged date, falling back to now so
// unparseable entries still carry a usable sort key.
func (e *Engine) loggedDateMillis(loggedDate string) int64 {
	if loggedDate != "" {
		if ts, err := time.Parse(loggedDateLayout, loggedDate); err == nil {
			return ts.UnixMilli()
		}
	}
	return e.now().UnixMilli()
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
