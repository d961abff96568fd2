package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/vinayprograms/taskrecorder/errors"
	"github.com/vinayprograms/taskrecorder/logging"
	"github.com/vinayprograms/taskrecorder/state"
	"github.com/vinayprograms/taskrecorder/telemetry"
)

// Launch starts task under key if key is absent or failed, and returns as
// soon as the key is marked working. The task runs in its own goroutine with
// a context that keeps ctx's values but not its cancellation.
//
// If key is working, successful or being revoked, Launch returns a
// *Rejected[R] carrying the observed state and task, which was not started.
func Launch[K comparable, R any](ctx context.Context, r *Recorder[K], key K, task Func[R]) error {
	_, err := run(ctx, r, OpLaunch, key, task, false)
	return err
}

// LaunchWait is Launch, but runs task on the calling goroutine and returns
// its result once the outcome is recorded.
func LaunchWait[K comparable, R any](ctx context.Context, r *Recorder[K], key K, task Func[R]) (R, error) {
	return run(ctx, r, OpLaunch, key, task, true)
}

// Revoke starts undo under key if key is successful, and returns as soon as
// the key is marked revoking. A nil error from undo removes the key; an
// error restores it to successful.
//
// Any other state rejects with a *Rejected[R] carrying the observed state and
// undo, which was not started.
func Revoke[K comparable, R any](ctx context.Context, r *Recorder[K], key K, undo Func[R]) error {
	_, err := run(ctx, r, OpRevoke, key, undo, false)
	return err
}

// RevokeWait is Revoke, but runs undo on the calling goroutine and returns
// its result once the outcome is recorded.
func RevokeWait[K comparable, R any](ctx context.Context, r *Recorder[K], key K, undo Func[R]) (R, error) {
	return run(ctx, r, OpRevoke, key, undo, true)
}

// admission is the result of a successful check-and-set.
type admission[K comparable] struct {
	op       Operation
	key      K
	label    string
	from     State
	revision uint64
	started  time.Time
}

// name formats the key on first use. Most admissions never need it.
func (a *admission[K]) name() string {
	if a.label == "" {
		a.label = keyString(a.key)
	}
	return a.label
}

// admits reports whether op may start from observed, and the state it
// moves the key to.
func admits(op Operation, observed State) (State, bool) {
	switch op {
	case OpLaunch:
		return StateWorking, observed == StateNotFound || observed == StateFailed
	case OpPromote:
		return StateSuccess, observed == StateNotFound || observed == StateFailed
	case OpRevoke:
		return StateRevoking, observed == StateSuccess
	default:
		return "", false
	}
}

// admit checks and transitions key in one atomic step on the store.
func (r *Recorder[K]) admit(ctx context.Context, op Operation, key K) (admission[K], *AdmissionError) {
	adm := admission[K]{op: op, key: key}

	var admitted bool
	kv, _ := r.states.Compute(key, func(cur state.KeyValue[K, State], loaded bool) (State, state.Action) {
		adm.from = StateNotFound
		if loaded {
			adm.from = cur.Value
		}
		next, ok := admits(op, adm.from)
		if !ok {
			return cur.Value, state.Keep
		}
		admitted = true
		return next, state.Put
	})

	if !admitted {
		r.logger.TaskRejected(op.String(), adm.name(), adm.from.String())
		r.tracer.RecordRejection(ctx, op.String(), adm.name(), adm.from.String())
		return adm, newAdmissionError(op, adm.name(), adm.from)
	}

	adm.revision = kv.Revision
	adm.started = time.Now()
	if r.logger.Enabled(logging.LevelDebug) {
		r.logger.TaskAdmitted(op.String(), adm.name(), adm.revision)
	}
	return adm, nil
}

// run is shared by the launch and revoke entry points. With wait false the
// body is detached and run returns right after admission.
func run[K comparable, R any](ctx context.Context, r *Recorder[K], op Operation, key K, task Func[R], wait bool) (R, error) {
	var zero R
	if task == nil {
		return zero, errors.InvalidInput(fmt.Sprintf("%s requires a task", op), errors.WithKey(keyString(key)))
	}

	// Counted before admission so Wait never sees a working key with
	// nothing in flight.
	r.flight.add()
	adm, rej := r.admit(ctx, op, key)
	if rej != nil {
		r.flight.done()
		return zero, &Rejected[R]{AdmissionError: rej, Task: task}
	}

	if !wait {
		ctx = context.WithoutCancel(ctx)
		go func() {
			defer r.flight.done()
			_, _ = execute(ctx, r, adm, task, true)
		}()
		return zero, nil
	}

	defer r.flight.done()
	return execute(ctx, r, adm, task, false)
}

// execute runs an admitted body and records its outcome.
func execute[K comparable, R any](ctx context.Context, r *Recorder[K], adm admission[K], task Func[R], detached bool) (R, error) {
	var label string
	if r.tracing {
		label = adm.name()
	}
	ctx, span := r.tracer.StartTaskSpan(ctx, adm.op.String(), label, adm.revision)

	var (
		result R
		err    error
		pc     panics.Catcher
	)
	pc.Try(func() {
		result, err = task(ctx)
	})
	if recovered := pc.Recovered(); recovered != nil {
		r.logger.TaskPanic(adm.op.String(), adm.name(), recovered.Value, recovered.Stack)
		err = errors.RecoverPanic(recovered.Value, errors.WithKey(adm.name()))
	}

	outcome, violation := r.settle(&adm, err == nil)

	r.tracer.EndTaskSpan(span, telemetry.TaskSpanOptions{Outcome: outcome, Detached: detached}, err)
	if err != nil || r.logger.Enabled(logging.LevelDebug) {
		r.logger.TaskSettled(adm.op.String(), adm.name(), outcome, time.Since(adm.started), err)
	}

	if violation != nil {
		panic(violation)
	}
	return result, err
}

const outcomeStale = "stale"

// settle records the outcome of an admitted body. The outcome only applies
// if the key still carries the admission revision; otherwise the key was
// forced in the meantime and the outcome is dropped.
func (r *Recorder[K]) settle(adm *admission[K], ok bool) (string, *errors.Error) {
	var (
		outcome   string
		current   uint64
		violation *errors.Error
	)

	expected, _ := admits(adm.op, adm.from)
	r.states.Compute(adm.key, func(cur state.KeyValue[K, State], loaded bool) (State, state.Action) {
		if !loaded || cur.Revision != adm.revision {
			outcome, current = outcomeStale, cur.Revision
			return cur.Value, state.Keep
		}
		if cur.Value != expected {
			violation = errors.Assertion(
				fmt.Sprintf("%s %s settled at revision %d in state %s, want %s",
					adm.op, adm.name(), adm.revision, cur.Value, expected),
				errors.WithKey(adm.name()),
			)
			outcome = cur.Value.String()
			return cur.Value, state.Keep
		}

		switch {
		case adm.op == OpLaunch && ok:
			outcome = StateSuccess.String()
			return StateSuccess, state.Put
		case adm.op == OpLaunch:
			outcome = StateFailed.String()
			return StateFailed, state.Put
		case ok:
			outcome = StateNotFound.String()
			return "", state.Delete
		default:
			outcome = StateSuccess.String()
			return StateSuccess, state.Put
		}
	})

	if outcome == outcomeStale {
		r.logger.StaleOutcome(adm.op.String(), adm.name(), adm.revision, current)
	}
	return outcome, violation
}
