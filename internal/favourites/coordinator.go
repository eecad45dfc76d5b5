// Package favourites implements favourite toggling with optimistic UI
// updates: the in-memory overlay is the single source of UI truth while a
// persistence call is in flight, and is rolled back if the call fails.
package favourites

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/stream"
)

// Store is the persistence half: the Local Favourites Store.
type Store interface {
	Toggle(key string, dateAdded int64) (bool, error)
	IsFavourite(key string) (bool, error)
	GetAllJoined() ([]entities.Book, error)
	GetRecentJoined(limit int) ([]entities.Book, error)
	DeleteAll() error
}

// ChangeListener is notified after every committed favourites change. The
// home-screen widget registers here; the default is a no-op so the core
// never depends on the widget being present.
type ChangeListener interface {
	FavouritesChanged()
}

type noopListener struct{}

func (noopListener) FavouritesChanged() {}

// Coordinator toggles and reads favourite status.
//
// Concurrent toggles on different keys are independent; toggles on the same
// key are serialized so two in-flight toggles cannot interleave their
// optimistic updates and rollbacks.
type Coordinator struct {
	store    Store
	listener ChangeListener
	now      func() time.Time

	mu       sync.Mutex
	overlay  map[string]bool
	keyLocks map[string]*sync.Mutex
	status   map[string]*stream.Stream[bool]
}

// NewCoordinator creates a favourites coordinator with a no-op listener.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:    store,
		listener: noopListener{},
		now:      time.Now,
		overlay:  make(map[string]bool),
		keyLocks: make(map[string]*sync.Mutex),
		status:   make(map[string]*stream.Stream[bool]),
	}
}

// SetChangeListener registers the single change listener. Passing nil
// restores the no-op default.
func (c *Coordinator) SetChangeListener(l ChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l == nil {
		l = noopListener{}
	}
	c.listener = l
}

// ToggleFavourite optimistically flips the favourite state of a key, then
// persists. On persistence failure the optimistic value is rolled back and
// the error returned; surfacing it to the user is the caller's choice.
func (c *Coordinator) ToggleFavourite(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("empty book key")
	}

	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	old := c.currentState(key)
	optimistic := !old

	c.mu.Lock()
	c.overlay[key] = optimistic
	listener := c.listener
	c.mu.Unlock()
	c.statusStream(key).Publish(optimistic)

	persisted, err := c.store.Toggle(key, c.now().UnixMilli())
	if err != nil {
		// Roll back to the pre-toggle value.
		c.mu.Lock()
		delete(c.overlay, key)
		c.mu.Unlock()
		c.statusStream(key).Publish(old)
		log.Printf("favourites: toggle %q failed, rolled back: %v", key, err)
		return fmt.Errorf("toggle favourite %q: %w", key, err)
	}

	// Committed: the store is authoritative again, clear the overlay.
	c.mu.Lock()
	delete(c.overlay, key)
	c.mu.Unlock()
	c.statusStream(key).Publish(persisted)

	listener.FavouritesChanged()
	return nil
}

// IsFavourite reports the effective favourite state: the optimistic overlay
// if a toggle is in flight, the store otherwise.
func (c *Coordinator) IsFavourite(key string) bool {
	return c.currentState(key)
}

// WatchFavourite subscribes to the favourite state of one key. The current
// effective state is replayed immediately.
func (c *Coordinator) WatchFavourite(ctx context.Context, key string) <-chan bool {
	s := c.statusStream(key)
	if _, ok := s.Current(); !ok {
		s.Publish(c.currentState(key))
	}
	return s.Subscribe(ctx)
}

// Favourites returns favourite books joined with their cache records, most
// recently favourited first.
func (c *Coordinator) Favourites() ([]entities.Book, error) {
	return c.store.GetAllJoined()
}

// RecentFavourites returns at most limit favourites, most recent first;
// the widget shows the top three.
func (c *Coordinator) RecentFavourites(limit int) ([]entities.Book, error) {
	return c.store.GetRecentJoined(limit)
}

// ClearAll removes every favourite record.
func (c *Coordinator) ClearAll() error {
	if err := c.store.DeleteAll(); err != nil {
		return fmt.Errorf("clear favourites: %w", err)
	}

	c.mu.Lock()
	c.overlay = make(map[string]bool)
	listener := c.listener
	streams := make([]*stream.Stream[bool], 0, len(c.status))
	for _, s := range c.status {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	for _, s := range streams {
		s.Publish(false)
	}
	listener.FavouritesChanged()
	return nil
}

// currentState resolves overlay-then-store. A store read failure degrades
// to "not favourited"; the join path will surface persistent trouble.
func (c *Coordinator) currentState(key string) bool {
	c.mu.Lock()
	if v, ok := c.overlay[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v, err := c.store.IsFavourite(key)
	if err != nil {
		log.Printf("favourites: read %q failed: %v", key, err)
		return false
	}
	return v
}

func (c *Coordinator) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.keyLocks[key] = lock
	}
	return lock
}

func (c *Coordinator) statusStream(key string) *stream.Stream[bool] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.status[key]
	if !ok {
		s = stream.New[bool]()
		c.status[key] = s
	}
	return s
}
