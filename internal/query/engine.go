package query

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/openshelf/shelfsync/internal/database/books"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/openlibrary"
	"github.com/openshelf/shelfsync/internal/stream"
)

// fallbackYearFrom is the lower bound of the year-range control when no
// cached book carries a publish year.
const fallbackYearFrom = 1900

// Criteria is the combined filter/sort state of the UI session.
type Criteria struct {
	Filter FilterOptions `json:"filter"`
	Sort   SortOption    `json:"sort"`
}

// YearRange is the derived (min, max) publish-year pair bounding the
// year-range filter control.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// BookSource is the watched unfiltered cache, implemented by the books
// repository.
type BookSource interface {
	WatchAll(ctx context.Context) <-chan books.Snapshot
}

// Engine combines the latest cache snapshot with the latest criteria into a
// continuously updated ViewState, plus the derived filter-aid views
// (authors, subjects, year range). Recomputation is pure and synchronous;
// only the inputs are asynchronous.
type Engine struct {
	source   BookSource
	criteria *stream.Stream[Criteria]

	out       *stream.Stream[ViewState]
	authors   *stream.Stream[[]string]
	subjects  *stream.Stream[[]string]
	yearRange *stream.Stream[YearRange]

	now func() time.Time
}

// NewEngine creates an engine with the given initial criteria. Start must be
// called before the output streams emit anything beyond their initial
// values.
func NewEngine(source BookSource, initial Criteria) *Engine {
	if !initial.Sort.Valid() {
		initial.Sort = DefaultSort
	}
	return &Engine{
		source:    source,
		criteria:  stream.NewWithInitial(initial),
		out:       stream.NewWithInitial(Idle()),
		authors:   stream.NewWithInitial([]string(nil)),
		subjects:  stream.NewWithInitial([]string(nil)),
		yearRange: stream.NewWithInitial(YearRange{}),
		now:       time.Now,
	}
}

// Start launches the combining goroutine; it runs until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.out.Publish(Loading())

	snapshots := stream.New[books.Snapshot]()
	combined := stream.CombineLatest(ctx, snapshots, e.criteria,
		func(snap books.Snapshot, c Criteria) ViewState {
			return e.recompute(snap, c)
		})

	// Relay the combined stream into the long-lived output stream so that
	// subscribers acquired before Start still see emissions.
	relayCh := combined.Subscribe(ctx)
	go func() {
		for state := range relayCh {
			e.out.Publish(state)
		}
	}()

	src := e.source.WatchAll(ctx)
	go func() {
		for snap := range src {
			e.publishDerived(snap)
			snapshots.Publish(snap)
		}
	}()
}

// SetCriteria replaces the whole filter/sort state.
func (e *Engine) SetCriteria(c Criteria) {
	if !c.Sort.Valid() {
		c.Sort = DefaultSort
	}
	e.criteria.Publish(c)
}

// SetFilter replaces the filter half, keeping the current sort.
func (e *Engine) SetFilter(f FilterOptions) {
	cur, _ := e.criteria.Current()
	cur.Filter = f
	e.criteria.Publish(cur)
}

// SetSort replaces the sort half, keeping the current filter.
func (e *Engine) SetSort(s SortOption) {
	if !s.Valid() {
		return
	}
	cur, _ := e.criteria.Current()
	cur.Sort = s
	e.criteria.Publish(cur)
}

// Criteria returns the current filter/sort state.
func (e *Engine) Criteria() Criteria {
	cur, _ := e.criteria.Current()
	return cur
}

// Watch subscribes to the book-list view state.
func (e *Engine) Watch(ctx context.Context) <-chan ViewState {
	return e.out.Subscribe(ctx)
}

// Current returns the latest view state.
func (e *Engine) Current() ViewState {
	state, _ := e.out.Current()
	return state
}

// WatchAuthors subscribes to the distinct sorted author list of the whole
// cache, used to populate the author filter control.
func (e *Engine) WatchAuthors(ctx context.Context) <-chan []string {
	return e.authors.Subscribe(ctx)
}

// WatchSubjects subscribes to the distinct sorted subject list.
func (e *Engine) WatchSubjects(ctx context.Context) <-chan []string {
	return e.subjects.Subscribe(ctx)
}

// WatchYearRange subscribes to the derived publish-year bounds.
func (e *Engine) WatchYearRange(ctx context.Context) <-chan YearRange {
	return e.yearRange.Subscribe(ctx)
}

// recompute turns one (snapshot, criteria) pair into a view state.
func (e *Engine) recompute(snap books.Snapshot, c Criteria) ViewState {
	if snap.Err != nil {
		return Error(streamErrorMessage(snap.Err))
	}
	if len(snap.Books) == 0 {
		return Empty()
	}

	filtered := Filter(snap.Books, c.Filter)
	Sort(filtered, c.Sort)
	return Success(filtered)
}

// publishDerived updates the auxiliary views from an unfiltered snapshot.
// Failures here degrade silently to safe defaults; these are convenience
// aids, not primary data.
func (e *Engine) publishDerived(snap books.Snapshot) {
	if snap.Err != nil {
		log.Printf("query: derived views unavailable: %v", snap.Err)
		e.authors.Publish(nil)
		e.subjects.Publish(nil)
		e.yearRange.Publish(YearRange{From: fallbackYearFrom, To: e.now().Year()})
		return
	}

	e.authors.Publish(distinctSorted(collectAuthors(snap.Books)))
	e.subjects.Publish(distinctSorted(collectSubjects(snap.Books)))
	e.yearRange.Publish(e.deriveYearRange(snap.Books))
}

func (e *Engine) deriveYearRange(all []entities.Book) YearRange {
	min, max := 0, 0
	for _, b := range all {
		if b.PublishYear == 0 {
			continue
		}
		if min == 0 || b.PublishYear < min {
			min = b.PublishYear
		}
		if b.PublishYear > max {
			max = b.PublishYear
		}
	}
	if min == 0 {
		return YearRange{From: fallbackYearFrom, To: e.now().Year()}
	}
	return YearRange{From: min, To: max}
}

func collectAuthors(all []entities.Book) []string {
	var out []string
	for _, b := range all {
		out = append(out, b.Authors...)
	}
	return out
}

func collectSubjects(all []entities.Book) []string {
	var out []string
	for _, b := range all {
		out = append(out, b.Subjects...)
	}
	return out
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// streamErrorMessage classifies a store read failure for the UI. The
// "offline" marker is load-bearing: the view layer sniffs it to pick the
// offline banner over the generic error view.
func streamErrorMessage(err error) string {
	if openlibrary.IsConnectivity(err) {
		return "offline: " + err.Error()
	}
	return err.Error()
}
