package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/openshelf/shelfsync/internal/details"
)

// FetchDetailsTask fetches description, subjects and a missing publish year
// for one cached book.
type FetchDetailsTask struct {
	BookKey string `json:"book_key"`
}

// Config returns the queue configuration for detail fetch tasks.
func (t FetchDetailsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "fetch_details",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// FetchDetailsProcessor creates a processor function for FetchDetailsTask.
func FetchDetailsProcessor(service *details.Service) backlite.QueueProcessor[FetchDetailsTask] {
	return func(ctx context.Context, task FetchDetailsTask) error {
		if service == nil {
			return fmt.Errorf("detail service not configured")
		}

		book, err := service.EnrichBook(ctx, task.BookKey)
		if err != nil {
			return fmt.Errorf("fetch details for %s: %w", task.BookKey, err)
		}

		log.Printf("[TASK] Fetched details for %s (%s)", task.BookKey, book.Title)
		return nil
	}
}

// NewFetchDetailsQueue creates a backlite queue for detail fetch tasks.
func NewFetchDetailsQueue(service *details.Service) backlite.Queue {
	return backlite.NewQueue(FetchDetailsProcessor(service))
}
