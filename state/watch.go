package state

import (
	"sync"
	"sync/atomic"
)

// Watcher receives the change feed of a Map.
type Watcher[K comparable, V any] struct {
	ch      chan KeyValue[K, V]
	set     *watcherSet[K, V]
	dropped atomic.Uint64
	once    sync.Once
}

// C returns the event channel. It is closed by Close.
func (w *Watcher[K, V]) C() <-chan KeyValue[K, V] {
	return w.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (w *Watcher[K, V]) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops the feed and closes the channel. Safe to call more than once.
func (w *Watcher[K, V]) Close() {
	w.once.Do(func() {
		w.set.remove(w)
	})
}

type watcherSet[K comparable, V any] struct {
	mu       sync.RWMutex
	watchers []*Watcher[K, V]
}

func (s *watcherSet[K, V]) add(buffer int) *Watcher[K, V] {
	w := &Watcher[K, V]{
		ch:  make(chan KeyValue[K, V], buffer),
		set: s,
	}
	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()
	return w
}

func (s *watcherSet[K, V]) remove(w *Watcher[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.watchers {
		if cur == w {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			break
		}
	}
	close(w.ch)
}

// notify runs inside the per-key critical section of Compute, which is what
// keeps per-key event order.
func (s *watcherSet[K, V]) notify(kv KeyValue[K, V]) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		select {
		case w.ch <- kv:
		default:
			w.dropped.Add(1)
		}
	}
}
