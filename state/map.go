package state

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Map is a concurrent map with per-key atomic entry access.
// The zero value is not usable; create one with NewMap.
type Map[K comparable, V any] struct {
	data     *xsync.MapOf[K, entry[V]]
	revision atomic.Uint64
	watchers watcherSet[K, V]
}

type entry[V any] struct {
	value    V
	revision uint64
	created  time.Time
	modified time.Time
}

// Ensure Map implements View.
var _ View[string, int] = (*Map[string, int])(nil)

// NewMap creates an empty map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		data: xsync.NewMapOf[K, entry[V]](),
	}
}

func toKeyValue[K comparable, V any](key K, e entry[V], op Operation) KeyValue[K, V] {
	return KeyValue[K, V]{
		Key:       key,
		Value:     e.value,
		Revision:  e.revision,
		Operation: op,
		Created:   e.created,
		Modified:  e.modified,
	}
}

// Get returns the full entry for key.
func (m *Map[K, V]) Get(key K) (KeyValue[K, V], bool) {
	e, ok := m.data.Load(key)
	if !ok {
		return KeyValue[K, V]{Key: key}, false
	}
	return toKeyValue(key, e, OpPut), true
}

// Load returns the value for key.
func (m *Map[K, V]) Load(key K) (V, bool) {
	e, ok := m.data.Load(key)
	return e.value, ok
}

// Compute runs fn with the current entry for key while holding that key's
// lock, then applies the returned Action. fn must not call back into the map.
//
// It returns the entry as it stands after the action and whether the key is
// present. For Delete the returned entry is the removed one.
func (m *Map[K, V]) Compute(key K, fn func(cur KeyValue[K, V], loaded bool) (V, Action)) (KeyValue[K, V], bool) {
	var (
		result  KeyValue[K, V]
		present bool
	)
	m.data.Compute(key, func(old entry[V], loaded bool) (entry[V], bool) {
		cur := KeyValue[K, V]{Key: key}
		if loaded {
			cur = toKeyValue(key, old, OpPut)
		}

		value, action := fn(cur, loaded)
		switch action {
		case Put:
			now := time.Now()
			next := entry[V]{
				value:    value,
				revision: m.revision.Add(1),
				created:  now,
				modified: now,
			}
			if loaded {
				next.created = old.created
			}
			result, present = toKeyValue(key, next, OpPut), true
			m.watchers.notify(result)
			return next, false

		case Delete:
			result, present = cur, false
			if loaded {
				result = toKeyValue(key, old, OpDelete)
				m.watchers.notify(result)
			}
			return old, true

		default:
			result, present = cur, loaded
			// Asking xsync to delete an absent key leaves it absent.
			return old, !loaded
		}
	})
	return result, present
}

// Put stores value under key unconditionally.
func (m *Map[K, V]) Put(key K, value V) KeyValue[K, V] {
	kv, _ := m.Compute(key, func(KeyValue[K, V], bool) (V, Action) {
		return value, Put
	})
	return kv
}

// Delete removes key. It reports whether the key was present.
func (m *Map[K, V]) Delete(key K) bool {
	var existed bool
	m.Compute(key, func(_ KeyValue[K, V], loaded bool) (V, Action) {
		existed = loaded
		var zero V
		return zero, Delete
	})
	return existed
}

// Range calls fn for each entry until fn returns false.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.data.Range(func(key K, e entry[V]) bool {
		return fn(key, e.value)
	})
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.data.Size()
}

// Keys returns all keys currently stored.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.data.Size())
	m.data.Range(func(key K, _ entry[V]) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Snapshot copies the current values into a plain map.
func (m *Map[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, m.data.Size())
	m.data.Range(func(key K, e entry[V]) bool {
		out[key] = e.value
		return true
	})
	return out
}

// Revision returns the highest revision assigned so far.
func (m *Map[K, V]) Revision() uint64 {
	return m.revision.Load()
}

// Watch subscribes to every subsequent mutation. Events for a given key are
// delivered in mutation order. When the buffer is full, events are dropped
// rather than blocking writers; see Watcher.Dropped.
func (m *Map[K, V]) Watch(buffer int) *Watcher[K, V] {
	if buffer < 1 {
		buffer = 1
	}
	return m.watchers.add(buffer)
}
