// Package state provides the concurrent key-value store that backs the task
// recorder.
//
// Map is generic over its key and value and offers per-key atomic
// read-modify-write through Compute. Mutators for different keys run in
// parallel; mutators for the same key are serialized. There is no store-wide
// lock.
//
// # Key Features
//
//   - Entry access: Compute reads the current entry and decides to keep,
//     put or delete it as one indivisible step
//   - Revisions: every put is stamped with a store-wide, strictly increasing
//     revision number
//   - Watch: subscribe to a feed of every mutation, ordered per key
//   - View: a read-only interface for handing the store to other components
//
// # Usage
//
//	m := state.NewMap[string, int]()
//
//	// Insert only if absent
//	kv, _ := m.Compute("jobs.1", func(cur state.KeyValue[string, int], loaded bool) (int, state.Action) {
//	    if loaded {
//	        return cur.Value, state.Keep
//	    }
//	    return 1, state.Put
//	})
//
//	// Watch for changes
//	w := m.Watch(64)
//	defer w.Close()
//	for kv := range w.C() {
//	    fmt.Printf("%v %s rev=%d\n", kv.Key, kv.Operation, kv.Revision)
//	}
package state
