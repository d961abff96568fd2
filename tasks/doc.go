// Package tasks tracks the lifecycle of asynchronous tasks by key and
// guarantees at most one active execution per key.
//
// A Recorder maps each key to a State. Launch admits a task only when its key
// is absent or failed, flips it to working in the same atomic step, and runs
// the task outside any lock. When the task returns, its outcome is recorded.
// Revoke does the same for undoing a successful task.
//
// # Basic Usage
//
//	rec := tasks.New[string]()
//
//	err := tasks.Launch(ctx, rec, md5, func(ctx context.Context) (string, error) {
//	    return upload(ctx, stream)
//	})
//	if state, rejected := tasks.RejectedState(err); rejected {
//	    // someone else owns md5; state says why
//	}
//
//	rec.Query(md5) // working, then success or failed
//
//	// Undo a finished upload and wait for the result
//	_, err = tasks.RevokeWait(ctx, rec, md5, func(ctx context.Context) (struct{}, error) {
//	    return struct{}{}, remove(ctx, md5)
//	})
//
// # Task Lifecycle
//
//	not_found ─┐
//	           ├─ Launch ─→ working ─→ success ─ Revoke ─→ revoking ─→ not_found
//	failed ────┘                 └──→ failed                     └──→ success (undo failed)
//
// Promote moves not_found or failed straight to success without running
// anything. Force sets any state and bypasses admission entirely.
//
// # Rejections
//
// A rejected Launch or Revoke returns a *Rejected[R] holding the state that
// blocked it and the task that was never started, so the caller can retry or
// hand it elsewhere:
//
//	var rej *tasks.Rejected[string]
//	if errors.As(err, &rej) {
//	    retryLater(rej.Task)
//	}
//
// # Overrides
//
// Every admission stamps the key with a fresh store revision. An outcome is
// only recorded if the key still carries the revision its admission got.
// Force always writes a new revision, so a task or revoke that is still in
// flight when its key is forced has its outcome discarded instead of
// clobbering the forced state.
//
// # Thread Safety
//
// Recorders and their clones are safe for concurrent use. Operations on
// different keys never contend with each other.
package tasks
