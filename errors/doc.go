// Package errors provides the structured error taxonomy used by the task
// recorder. Every error carries a code and a category so callers can tell an
// admission conflict from a failed task body or a broken invariant.
//
// # Error Categories
//
//   - Transient: the operation may succeed if attempted again later
//   - Permanent: retrying the same call will not help
//   - Internal: a bug or a recovered panic
//
// # Usage
//
//	err := errors.Conflict("launch rejected", errors.WithKey("upload-42"))
//
//	if errors.Is(err, errors.ErrCodeConflict) {
//	    // the key is busy; try again once it settles
//	}
//
// Wrap a task body failure so it keeps its cause:
//
//	wrapped := errors.Wrap(err, "uploading chunk")
package errors
