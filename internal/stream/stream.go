// Package stream provides a small typed publish/subscribe primitive with
// latest-wins delivery, plus a combine-latest operator.
//
// Subscribers receive immutable snapshots over a buffered channel of
// capacity one: if a subscriber lags, intermediate values are dropped and
// only the most recent value is guaranteed eventually visible. Consumers
// must never mutate received values.
package stream

import (
	"context"
	"sync"
)

// Stream is a multi-consumer broadcast of values of type T.
// The zero value is not usable; construct with New or NewWithInitial.
type Stream[T any] struct {
	mu      sync.Mutex
	subs    map[int]chan T
	nextID  int
	current T
	hasCur  bool
}

// New creates an empty stream. Subscribers receive nothing until the first
// Publish.
func New[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[int]chan T)}
}

// NewWithInitial creates a stream whose subscribers immediately receive v.
func NewWithInitial[T any](v T) *Stream[T] {
	s := New[T]()
	s.current = v
	s.hasCur = true
	return s
}

// Publish broadcasts v to all subscribers, replacing any value a slow
// subscriber has not yet consumed.
func (s *Stream[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = v
	s.hasCur = true
	for _, ch := range s.subs {
		send(ch, v)
	}
}

// Current returns the most recently published value, if any.
func (s *Stream[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCur
}

// Subscribe registers a new subscriber. The current value, if any, is
// replayed immediately. The subscription is released and the channel closed
// when ctx is cancelled.
func (s *Stream[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	if s.hasCur {
		send(ch, s.current)
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

// send delivers v on a capacity-one channel, dropping the stale value if the
// subscriber has not drained it yet.
func send[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// CombineLatest produces a stream of combine(a, b) recomputed whenever
// either input emits. Nothing is published until both inputs have emitted at
// least once. The combining goroutine exits when ctx is cancelled.
func CombineLatest[A, B, C any](ctx context.Context, a *Stream[A], b *Stream[B], combine func(A, B) C) *Stream[C] {
	out := New[C]()
	chA := a.Subscribe(ctx)
	chB := b.Subscribe(ctx)

	go func() {
		var (
			lastA A
			lastB B
			seenA bool
			seenB bool
		)
		for chA != nil || chB != nil {
			select {
			case v, ok := <-chA:
				if !ok {
					chA = nil
					continue
				}
				lastA, seenA = v, true
			case v, ok := <-chB:
				if !ok {
					chB = nil
					continue
				}
				lastB, seenB = v, true
			case <-ctx.Done():
				return
			}
			if seenA && seenB {
				out.Publish(combine(lastA, lastB))
			}
		}
	}()

	return out
}
