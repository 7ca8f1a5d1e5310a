package state

import (
	"sync"

	"github.com/google/uuid"
)

// Store is the process-wide reactive state aggregate. Updates are
// serialized under a mutex and publish a new whole-value snapshot;
// subscribers receive snapshots over conflated (capacity-1,
// overwrite-on-full) channels, so a slow consumer never blocks a producer;
// it simply misses intermediate snapshots and sees only the latest.
type Store struct {
	mu      sync.RWMutex
	current Settings
	subs    map[uuid.UUID]*Subscription
	closed  bool
}

// Subscription is one observer's handle on the store. Snapshots arrive on
// Updates in commit order, possibly sparsely.
type Subscription struct {
	id    uuid.UUID
	ch    chan Settings
	store *Store
}

// NewStore creates a store publishing initial as its first snapshot.
func NewStore(initial Settings) *Store {
	return &Store{
		current: initial,
		subs:    make(map[uuid.UUID]*Subscription),
	}
}

// Current returns the most recently committed snapshot without blocking.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies transform to the current snapshot and publishes the result
// as the new snapshot. At most one Update commits at a time; commits are
// totally ordered. Returns the committed snapshot.
func (s *Store) Update(transform func(Settings) Settings) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.current
	}

	next := transform(s.current)
	s.current = next
	for _, sub := range s.subs {
		sub.offer(next)
	}
	return next
}

// Subscribe registers a new observer. The current snapshot is delivered
// immediately so a subscriber never starts stale.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		id:    uuid.New(),
		ch:    make(chan Settings, 1),
		store: s,
	}
	if s.closed {
		close(sub.ch)
		return sub
	}
	s.subs[sub.id] = sub
	sub.offer(s.current)
	return sub
}

// Close ends every subscription. Further Updates are no-ops; Current keeps
// returning the final snapshot. Intended for process shutdown only.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
}

// Updates returns the snapshot channel. It is closed when the subscription
// or the store is closed.
func (sub *Subscription) Updates() <-chan Settings {
	return sub.ch
}

// Close removes the subscription from the store and closes its channel.
// Safe to call more than once.
func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.id]; !ok {
		return
	}
	delete(s.subs, sub.id)
	close(sub.ch)
}

// offer places snap in the subscription's slot, displacing an unconsumed
// older snapshot if present. Never blocks. Caller holds the store mutex, so
// an offer cannot race a close of the channel.
func (sub *Subscription) offer(snap Settings) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}
