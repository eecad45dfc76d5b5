package query

import (
	"strings"

	"github.com/openshelf/shelfsync/internal/entities"
)

// Status enumerates the states of the book-list view.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// ViewState is what the UI renders.
//
// Empty means the unfiltered cache itself holds nothing; a non-empty cache
// whose filter excludes everything is Success with a zero-length list. The
// two drive different empty-state messaging and must never be conflated.
type ViewState struct {
	Status Status          `json:"status"`
	Books  []entities.Book `json:"books,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Idle is the state before any load has started.
func Idle() ViewState { return ViewState{Status: StatusIdle} }

// Loading is the state while the first cache read is in flight.
func Loading() ViewState { return ViewState{Status: StatusLoading} }

// Success wraps a (possibly empty) filtered list.
func Success(books []entities.Book) ViewState {
	if books == nil {
		books = []entities.Book{}
	}
	return ViewState{Status: StatusSuccess, Books: books}
}

// Empty is the state of a completely empty cache.
func Empty() ViewState { return ViewState{Status: StatusEmpty} }

// Error wraps a stream-scoped failure that replaces the whole list view.
func Error(message string) ViewState {
	return ViewState{Status: StatusError, Error: message}
}

// IsOffline reports whether an error state stems from connectivity loss.
// The UI picks the offline banner over the generic error view by sniffing
// the message contents.
func (v ViewState) IsOffline() bool {
	if v.Status != StatusError {
		return false
	}
	msg := strings.ToLower(v.Error)
	return strings.Contains(msg, "offline") || strings.Contains(msg, "no internet")
}
