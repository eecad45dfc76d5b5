// Package openlibrary is a thin client for the OpenLibrary reading-log and
// book-detail endpoints consumed by the sync and detail-enrichment paths.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openshelf/shelfsync/internal/entities"
)

const (
	defaultBaseURL = "https://openlibrary.org"
	coversBaseURL  = "https://covers.openlibrary.org"
	defaultTimeout = 15 * time.Second
	userAgent      = "ShelfSync/1.0 (https://github.com/openshelf/shelfsync)"

	// ShelfPageLimit bounds every shelf fetch to the first N entries of a
	// page; there is no pagination beyond page 1 in the sync path.
	ShelfPageLimit = 100
)

// Shelf is an OpenLibrary reading-log shelf name as it appears in URLs.
type Shelf string

const (
	ShelfWantToRead       Shelf = "want-to-read"
	ShelfCurrentlyReading Shelf = "currently-reading"
	ShelfAlreadyRead      Shelf = "already-read"
)

// Shelves lists all shelves in sync order.
var Shelves = []Shelf{ShelfWantToRead, ShelfCurrentlyReading, ShelfAlreadyRead}

// ReadingStatus maps a shelf to the cached reading status it assigns.
func (s Shelf) ReadingStatus() entities.ReadingStatus {
	switch s {
	case ShelfCurrentlyReading:
		return entities.StatusCurrentlyReading
	case ShelfAlreadyRead:
		return entities.StatusAlreadyRead
	default:
		return entities.StatusWantToRead
	}
}

// Client fetches reading-log shelves and work/edition details.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client against the public OpenLibrary API.
func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL creates a client against an alternate endpoint,
// primarily for tests.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ReadingLogEntry is one raw shelf record.
type ReadingLogEntry struct {
	Work          ReadingLogWork `json:"work"`
	LoggedEdition string         `json:"logged_edition"`
	LoggedDate    string         `json:"logged_date"`
}

// ReadingLogWork is the nested work object of a shelf record.
type ReadingLogWork struct {
	Title            string   `json:"title"`
	Key              string   `json:"key"`
	AuthorNames      []string `json:"author_names"`
	CoverID          int64    `json:"cover_id"`
	FirstPublishYear int      `json:"first_publish_year"`
}

type shelfPage struct {
	Page    int               `json:"page"`
	Entries []ReadingLogEntry `json:"reading_log_entries"`
}

// FetchShelf returns up to ShelfPageLimit entries of one page of a user's
// shelf. A missing entries array decodes to an empty slice.
func (c *Client) FetchShelf(ctx context.Context, username string, shelf Shelf, page int) ([]ReadingLogEntry, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if page < 1 {
		page = 1
	}

	u := fmt.Sprintf("%s/people/%s/books/%s.json?page=%d&limit=%d",
		c.baseURL, url.PathEscape(username), shelf, page, ShelfPageLimit)

	var result shelfPage
	if err := c.getJSON(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("fetch %s shelf: %w", shelf, err)
	}

	entries := result.Entries
	if len(entries) > ShelfPageLimit {
		entries = entries[:ShelfPageLimit]
	}
	return entries, nil
}

// Work is the detail document of an OpenLibrary work.
type Work struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description any      `json:"description"` // string or {type, value}
	Subjects    []string `json:"subjects"`
}

// DescriptionText flattens the polymorphic description field.
func (w *Work) DescriptionText() string {
	switch v := w.Description.(type) {
	case string:
		return v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			return val
		}
	}
	return ""
}

// Edition is the detail document of a logged edition.
type Edition struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	PublishDate   string   `json:"publish_date"`
	NumberOfPages int      `json:"number_of_pages"`
	Publishers    []string `json:"publishers"`
	Covers        []int64  `json:"covers"`
}

// FetchWork fetches a work detail document by its key (e.g. "OL45883W").
func (c *Client) FetchWork(ctx context.Context, workKey string) (*Work, error) {
	if workKey == "" {
		return nil, fmt.Errorf("empty work key")
	}

	var work Work
	u := fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(workKey))
	if err := c.getJSON(ctx, u, &work); err != nil {
		return nil, fmt.Errorf("fetch work %s: %w", workKey, err)
	}
	return &work, nil
}

// FetchEdition fetches an edition detail document by its key (e.g. "OL7353617M").
func (c *Client) FetchEdition(ctx context.Context, editionKey string) (*Edition, error) {
	if editionKey == "" {
		return nil, fmt.Errorf("empty edition key")
	}

	var edition Edition
	u := fmt.Sprintf("%s/books/%s.json", c.baseURL, url.PathEscape(editionKey))
	if err := c.getJSON(ctx, u, &edition); err != nil {
		return nil, fmt.Errorf("fetch edition %s: %w", editionKey, err)
	}
	return &edition, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CoverURL builds the deterministic medium-size cover image URL for a
// positive numeric cover id. Zero or negative ids yield an empty string; no
// secondary lookup is attempted for missing covers.
func CoverURL(coverID int64) string {
	if coverID <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/b/id/%d-M.jpg", coversBaseURL, coverID)
}

// NormalizeWorkKey strips the "/works/" path prefix OpenLibrary uses in
// reading-log payloads, keeping only the bare identifier.
func NormalizeWorkKey(key string) string {
	return strings.TrimPrefix(key, "/works/")
}

// NormalizeEditionKey strips the "/books/" path prefix.
func NormalizeEditionKey(key string) string {
	return strings.TrimPrefix(key, "/books/")
}
