// Package store holds the current marketplace snapshot behind a single
// atomic handle. Readers never lock; writers swap whole snapshots and are
// rejected when the snapshot they computed against is no longer current.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roboos-network/roboos/internal/domain"
)

// ErrClosed is returned by Replace after Close.
var ErrClosed = errors.New("store is closed")

// Store is the entity store. The zero value is not usable; call New.
type Store struct {
	cur    atomic.Pointer[domain.Snapshot]
	closed atomic.Bool

	mu        sync.Mutex
	subs      map[int]chan domain.Snapshot
	nextSub   int
	published uint64
}

// New creates a store seeded with initial at generation 0.
func New(initial domain.Snapshot) *Store {
	s := &Store{subs: make(map[int]chan domain.Snapshot)}
	snap := initial.Clone()
	snap.Generation = 0
	s.cur.Store(&snap)
	return s
}

// Current returns the current snapshot. The returned value shares memory
// with the store and must be treated as read-only; Clone it before editing.
func (s *Store) Current() domain.Snapshot {
	return *s.cur.Load()
}

// Generation returns the generation of the current snapshot.
func (s *Store) Generation() uint64 {
	return s.cur.Load().Generation
}

// Replace atomically swaps in next. next.Generation must equal the
// generation of the snapshot it was derived from; the stored copy gets the
// following generation. A mismatch returns domain.ErrStaleSnapshot and
// leaves the store untouched. Once Close has returned no Replace succeeds.
func (s *Store) Replace(next domain.Snapshot) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return 0, ErrClosed
	}
	old := s.cur.Load()
	if old.Generation != next.Generation {
		return 0, domain.ErrStaleSnapshot
	}
	stored := next
	stored.Generation = old.Generation + 1
	if !s.cur.CompareAndSwap(old, &stored) {
		return 0, domain.ErrStaleSnapshot
	}
	s.publishLocked()
	return stored.Generation, nil
}

// Update runs fn against a private copy of the current snapshot and
// replaces it, recomputing from the latest snapshot on ErrStaleSnapshot.
// If fn returns an error nothing is written.
func (s *Store) Update(fn func(*domain.Snapshot) error) (domain.Snapshot, error) {
	for {
		base := s.Current()
		next := base.Clone()
		if err := fn(&next); err != nil {
			return base, err
		}
		next.Generation = base.Generation
		gen, err := s.Replace(next)
		if errors.Is(err, domain.ErrStaleSnapshot) {
			continue
		}
		if err != nil {
			return base, err
		}
		next.Generation = gen
		return next, nil
	}
}

// Subscribe returns a channel that receives the current snapshot and then
// every later one. A slow subscriber only ever sees the newest snapshot;
// intermediate ones are dropped. The channel closes when ctx is done or the
// store is closed.
func (s *Store) Subscribe(ctx context.Context) <-chan domain.Snapshot {
	ch := make(chan domain.Snapshot, 1)

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.Current()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}()
	return ch
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close tears the store down: later writes fail with ErrClosed and every
// subscription channel is closed. Current keeps returning the last snapshot.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) publishLocked() {
	snap := s.Current()
	if snap.Generation <= s.published {
		return
	}
	s.published = snap.Generation
	for _, ch := range s.subs {
		select {
		case <-ch: // drop the stale one
		default:
		}
		ch <- snap
	}
}
