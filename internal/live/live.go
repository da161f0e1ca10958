// Package live maintains one locally cached, ordered view per
// tracked collection, refreshed from the store whenever the change
// feed signals. A snapshot is always the full member-set; there is
// no field-level merge, the store is ground truth. Each refresh is
// O(collection size) by design.
package live

import (
	"context"
	"sync"

	"rentport/core/internal/feed"
)

// Source describes one tracked collection for a resolved identity.
// Fetch must already be scoped (tenant: own records; landlord: full
// collection; messages: participant).
type Source[T any] struct {
	Collection string
	Fetch      func(ctx context.Context) ([]T, error)
	Order      func([]T) []T
}

// Snapshot is a full point-in-time member-set. When the underlying
// fetch fails, Records is empty and Err carries the failure, so a
// consumer can tell "no records" from "subscription broke".
type Snapshot[T any] struct {
	Records []T
	Err     error
}

// Subscription is a live view of one collection. The cache is owned
// by a single goroutine; readers only see the latest published
// snapshot. Close must be called to release the feed subscription.
type Subscription[T any] struct {
	mu      sync.Mutex
	latest  Snapshot[T]
	started bool

	updates    chan Snapshot[T]
	cancel     context.CancelFunc
	cancelFeed func()
	done       chan struct{}
	closeOnce  sync.Once
}

// Open subscribes to the collection's change feed and delivers an
// initial snapshot followed by one snapshot per (coalesced) change.
func Open[T any](ctx context.Context, f feed.Feed, src Source[T]) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	notify, cancelFeed, err := f.Subscribe(ctx, src.Collection)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription[T]{
		updates:    make(chan Snapshot[T], 1),
		cancel:     cancel,
		cancelFeed: cancelFeed,
		done:       make(chan struct{}),
	}
	go sub.run(ctx, src, notify)
	return sub, nil
}

func (s *Subscription[T]) run(ctx context.Context, src Source[T], notify <-chan struct{}) {
	defer close(s.done)

	s.refresh(ctx, src)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notify:
			if !ok {
				return
			}
			s.refresh(ctx, src)
		}
	}
}

func (s *Subscription[T]) refresh(ctx context.Context, src Source[T]) {
	records, err := src.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Fail open: the view empties rather than crashing, but the
		// error rides along on the snapshot.
		s.publish(Snapshot[T]{Records: []T{}, Err: err})
		return
	}
	if src.Order != nil {
		records = src.Order(records)
	}
	if records == nil {
		records = []T{}
	}
	s.publish(Snapshot[T]{Records: records})
}

// publish replaces the cached snapshot atomically and queues it for
// Updates consumers, dropping any stale undelivered snapshot first
// (last-write-wins).
func (s *Subscription[T]) publish(snap Snapshot[T]) {
	s.mu.Lock()
	s.latest = snap
	s.started = true
	s.mu.Unlock()

	for {
		select {
		case s.updates <- snap:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// Latest returns the most recently delivered snapshot. Before the
// first delivery it is empty with ok=false.
func (s *Subscription[T]) Latest() (Snapshot[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.started
}

// Updates delivers snapshots with capacity one: if the consumer
// lags, intermediate snapshots are discarded and only the newest is
// observable. The channel closes after Close.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Close tears down the feed subscription and the cache goroutine.
// Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.cancelFeed()
		<-s.done
		close(s.updates)
	})
}
