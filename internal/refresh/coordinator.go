// Package refresh coordinates user-initiated shelf refreshes: trailing
// debounce, at most one sync in flight, and transient error surfacing that
// never touches the visible cache.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/openlibrary"
	"github.com/openshelf/shelfsync/internal/stream"
)

// DefaultDebounce is the trailing debounce window: only the last refresh
// request within the window triggers a sync.
const DefaultDebounce = 500 * time.Millisecond

// Syncer runs one full shelf sync.
type Syncer interface {
	SyncShelves(ctx context.Context, username string) ([]entities.Book, error)
}

// Coordinator debounces refresh requests and enforces single-flight syncs.
//
// State machine: Idle -> PendingDebounce -> Syncing -> Idle. Every Refresh
// call resets the debounce window; a request arriving while a sync is
// already running is queued and started once the running sync completes,
// never concurrently with it.
type Coordinator struct {
	syncer   Syncer
	debounce time.Duration
	onSynced func(books []entities.Book)

	mu          sync.Mutex
	timer       *time.Timer
	pendingUser string
	syncing     bool
	queued      bool

	isRefreshing *stream.Stream[bool]
	errorMessage *stream.Stream[string]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce overrides the debounce window, mainly for tests.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithOnSynced registers a callback invoked with the synced batch after
// every successful sync (e.g. to enqueue detail enrichment).
func WithOnSynced(fn func(books []entities.Book)) Option {
	return func(c *Coordinator) { c.onSynced = fn }
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(syncer Syncer, opts ...Option) *Coordinator {
	c := &Coordinator{
		syncer:       syncer,
		debounce:     DefaultDebounce,
		isRefreshing: stream.NewWithInitial(false),
		errorMessage: stream.NewWithInitial(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh requests a sync for the username. May be called arbitrarily often;
// calls within the debounce window coalesce into one sync carrying the most
// recent username.
func (c *Coordinator) Refresh(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pendingUser = username
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.fire)
}

// fire runs when the debounce window elapses with no newer request.
func (c *Coordinator) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer = nil
	if c.syncing {
		// Single flight: remember the request, start after completion.
		c.queued = true
		return
	}
	c.startLocked()
}

// startLocked begins a sync for the pending username. Caller holds c.mu.
func (c *Coordinator) startLocked() {
	username := c.pendingUser
	c.syncing = true
	c.isRefreshing.Publish(true)

	go func() {
		books, err := c.syncer.SyncShelves(context.Background(), username)

		c.mu.Lock()
		c.syncing = false
		c.isRefreshing.Publish(false)
		if err != nil {
			c.errorMessage.Publish(classify(err))
			log.Printf("refresh: sync for %q failed: %v", username, err)
		} else if c.onSynced != nil {
			go c.onSynced(books)
		}
		if c.queued && c.timer == nil {
			c.queued = false
			c.startLocked()
			c.mu.Unlock()
			return
		}
		c.queued = false
		c.mu.Unlock()
	}()
}

// WatchRefreshing subscribes to the refresh-in-progress flag.
func (c *Coordinator) WatchRefreshing(ctx context.Context) <-chan bool {
	return c.isRefreshing.Subscribe(ctx)
}

// IsRefreshing returns the current refresh-in-progress flag.
func (c *Coordinator) IsRefreshing() bool {
	v, _ := c.isRefreshing.Current()
	return v
}

// WatchError subscribes to the transient error message stream; an empty
// string means no pending error.
func (c *Coordinator) WatchError(ctx context.Context) <-chan string {
	return c.errorMessage.Subscribe(ctx)
}

// ErrorMessage returns the pending transient error, if any.
func (c *Coordinator) ErrorMessage() string {
	v, _ := c.errorMessage.Current()
	return v
}

// AcknowledgeError clears the pending error after the consumer showed it.
func (c *Coordinator) AcknowledgeError() {
	c.errorMessage.Publish("")
}

// classify maps a refresh failure to its user-facing transient message.
// Connectivity loss, generic network I/O and everything else read
// differently in the UI; the cache stays visible in all cases.
func classify(err error) string {
	switch {
	case openlibrary.IsConnectivity(err):
		return "No internet connection. Can't refresh your shelves."
	case openlibrary.IsNetwork(err):
		return "Network error while refreshing. Please try again."
	default:
		return fmt.Sprintf("Refresh failed: %v", err)
	}
}
