package favourites

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/shelfsync/internal/entities"
)

type fakeStore struct {
	mu        sync.Mutex
	favs      map[string]int64
	toggleErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{favs: make(map[string]int64)}
}

func (s *fakeStore) Toggle(key string, dateAdded int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toggleErr != nil {
		return false, s.toggleErr
	}
	if _, ok := s.favs[key]; ok {
		delete(s.favs, key)
		return false, nil
	}
	s.favs[key] = dateAdded
	return true, nil
}

func (s *fakeStore) IsFavourite(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favs[key]
	return ok, nil
}

func (s *fakeStore) GetAllJoined() ([]entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.Book
	for key := range s.favs {
		out = append(out, entities.Book{Key: key, IsFavorite: true})
	}
	return out, nil
}

func (s *fakeStore) GetRecentJoined(limit int) ([]entities.Book, error) {
	books, _ := s.GetAllJoined()
	if len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (s *fakeStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favs = make(map[string]int64)
	return nil
}

type recordingListener struct {
	mu    sync.Mutex
	count int
}

func (l *recordingListener) FavouritesChanged() {
	l.mu.Lock()
	l.count++
	l.mu.Unlock()
}

func (l *recordingListener) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func collect(t *testing.T, ch <-chan bool, n int) []bool {
	t.Helper()
	out := make([]bool, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-deadline:
			t.Fatalf("timed out after %d of %d values: %v", len(out), n, out)
		}
	}
	return out
}

func TestToggle_PersistsAndNotifies(t *testing.T) {
	store := newFakeStore()
	listener := &recordingListener{}
	c := NewCoordinator(store)
	c.SetChangeListener(listener)

	require.NoError(t, c.ToggleFavourite(context.Background(), "dune_frank_herbert"))
	assert.True(t, c.IsFavourite("dune_frank_herbert"))
	assert.Equal(t, 1, listener.calls())

	require.NoError(t, c.ToggleFavourite(context.Background(), "dune_frank_herbert"))
	assert.False(t, c.IsFavourite("dune_frank_herbert"))
	assert.Equal(t, 2, listener.calls())
}

func TestToggle_OptimisticRollbackOrdering(t *testing.T) {
	store := newFakeStore()
	store.toggleErr = errors.New("disk full")
	blocked := make(chan struct{})
	release := make(chan struct{})
	slow := &slowStore{fakeStore: store, blocked: blocked, release: release}

	c := NewCoordinator(slow)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := c.WatchFavourite(ctx, "dune_frank_herbert")
	require.Equal(t, []bool{false}, collect(t, ch, 1), "old value first")

	done := make(chan error, 1)
	go func() {
		done <- c.ToggleFavourite(context.Background(), "dune_frank_herbert")
	}()

	// Optimistic emission arrives while persistence is still in flight.
	<-blocked
	require.Equal(t, []bool{true}, collect(t, ch, 1), "optimistic value second")

	// Failing the persistence call rolls the stream back to the old value.
	close(release)
	require.Error(t, <-done)
	require.Equal(t, []bool{false}, collect(t, ch, 1), "rollback third")

	persisted, _ := store.IsFavourite("dune_frank_herbert")
	assert.False(t, persisted, "store must be unchanged")
}

func TestToggle_OptimisticValueVisibleDuringPersistence(t *testing.T) {
	store := newFakeStore()
	c := NewCoordinator(store)

	// Block the store call so the optimistic window is observable.
	blocked := make(chan struct{})
	release := make(chan struct{})
	slow := &slowStore{fakeStore: store, blocked: blocked, release: release}
	c.store = slow

	done := make(chan error, 1)
	go func() {
		done <- c.ToggleFavourite(context.Background(), "k")
	}()

	<-blocked
	assert.True(t, c.IsFavourite("k"), "optimistic value visible while persistence is in flight")
	close(release)

	require.NoError(t, <-done)
	assert.True(t, c.IsFavourite("k"))
}

type slowStore struct {
	*fakeStore
	blocked chan struct{}
	release chan struct{}
}

func (s *slowStore) Toggle(key string, dateAdded int64) (bool, error) {
	close(s.blocked)
	<-s.release
	return s.fakeStore.Toggle(key, dateAdded)
}

func TestToggle_IndependentKeys(t *testing.T) {
	store := newFakeStore()
	c := NewCoordinator(store)

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d"}
	for _, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.ToggleFavourite(context.Background(), key)
		}()
	}
	wg.Wait()

	for _, key := range keys {
		assert.True(t, c.IsFavourite(key), "key %s", key)
	}
}

func TestToggle_EmptyKeyRejected(t *testing.T) {
	c := NewCoordinator(newFakeStore())
	assert.Error(t, c.ToggleFavourite(context.Background(), ""))
}

func TestClearAll(t *testing.T) {
	store := newFakeStore()
	listener := &recordingListener{}
	c := NewCoordinator(store)
	c.SetChangeListener(listener)

	require.NoError(t, c.ToggleFavourite(context.Background(), "a"))
	require.NoError(t, c.ToggleFavourite(context.Background(), "b"))

	require.NoError(t, c.ClearAll())
	assert.False(t, c.IsFavourite("a"))
	assert.False(t, c.IsFavourite("b"))

	books, err := c.Favourites()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestRecentFavourites_Limit(t *testing.T) {
	store := newFakeStore()
	c := NewCoordinator(store)

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, c.ToggleFavourite(context.Background(), key))
	}

	recent, err := c.RecentFavourites(3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
