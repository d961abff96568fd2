package state

import (
	"time"
)

// Operation represents the type of change to a key.
type Operation int

const (
	// OpPut indicates a key was created or updated.
	OpPut Operation = iota
	// OpDelete indicates a key was deleted.
	OpDelete
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Action is what a Compute mutator asks the map to do with the entry.
type Action int

const (
	// Keep leaves the entry untouched. An absent key stays absent.
	Keep Action = iota
	// Put stores the returned value under a fresh revision.
	Put
	// Delete removes the entry.
	Delete
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Put:
		return "put"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// KeyValue represents an entry with metadata.
type KeyValue[K comparable, V any] struct {
	// Key is the entry key.
	Key K

	// Value is the entry value. For OpDelete events it is the removed value.
	Value V

	// Revision is the store-wide revision of the last put.
	Revision uint64

	// Operation indicates the type of change.
	Operation Operation

	// Created is when the key was first stored.
	Created time.Time

	// Modified is when the key was last stored.
	Modified time.Time
}

// View is read-only access to a Map.
type View[K comparable, V any] interface {
	// Get returns the full entry for key.
	Get(key K) (KeyValue[K, V], bool)

	// Load returns the value for key.
	Load(key K) (V, bool)

	// Range calls fn for each entry until fn returns false.
	// The iteration is not a consistent snapshot.
	Range(fn func(key K, value V) bool)

	// Len returns the number of entries.
	Len() int

	// Keys returns all keys currently stored.
	Keys() []K

	// Snapshot copies the current values into a plain map.
	Snapshot() map[K]V
}
