package tasks

import (
	"context"
	"fmt"

	"github.com/vinayprograms/taskrecorder/errors"
)

// State is the lifecycle state of a key.
type State string

const (
	// StateWorking indicates a task was admitted and has not finished.
	StateWorking State = "working"

	// StateSuccess indicates the task finished without error.
	StateSuccess State = "success"

	// StateFailed indicates the task finished with an error.
	StateFailed State = "failed"

	// StateRevoking indicates a successful task is being undone.
	StateRevoking State = "revoking"

	// StateNotFound is never stored. It is reported for keys with no entry.
	StateNotFound State = "not_found"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	switch s {
	case StateWorking, StateSuccess, StateFailed, StateRevoking, StateNotFound:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no operation is in flight for the state.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// ParseState converts a string into a State.
func ParseState(s string) (State, error) {
	state := State(s)
	if !state.Valid() {
		return "", errors.InvalidInput(fmt.Sprintf("unknown task state %q", s))
	}
	return state, nil
}

// Operation names a recorder operation.
type Operation string

const (
	// OpLaunch starts a task on an absent or failed key.
	OpLaunch Operation = "launch"

	// OpRevoke undoes a successful task.
	OpRevoke Operation = "revoke"

	// OpPromote marks an absent or failed key successful without a task.
	OpPromote Operation = "promote"

	// OpForce sets a state without admission.
	OpForce Operation = "force"
)

// String returns the operation name.
func (o Operation) String() string {
	return string(o)
}

// Func is a deferred computation run by Launch or Revoke.
type Func[R any] func(ctx context.Context) (R, error)

// Transition is one change to a key as seen by Recorder.Watch.
type Transition[K comparable] struct {
	Key K

	// State is the new state; StateNotFound when the key was removed.
	State State

	// Revision is the store revision of the change. For removals it is the
	// revision of the entry that was removed.
	Revision uint64
}

// AdmissionError reports that an operation was not admitted because of the
// state its key was in.
type AdmissionError struct {
	Op    Operation
	Key   string
	State State

	cause *errors.Error
}

func newAdmissionError(op Operation, key string, observed State) *AdmissionError {
	code := errors.ErrCodePrecondition
	switch observed {
	case StateWorking, StateRevoking:
		code = errors.ErrCodeConflict
	case StateNotFound:
		code = errors.ErrCodeNotFound
	}
	return &AdmissionError{
		Op:    op,
		Key:   key,
		State: observed,
		cause: errors.FromCode(code,
			errors.WithKey(key),
			errors.WithMetadata("state", observed.String()),
			errors.WithMetadata("op", op.String()),
		),
	}
}

// Error returns the error message.
func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s %s rejected: task is %s", e.Op, e.Key, e.State)
}

// Unwrap returns the structured error carrying the code.
func (e *AdmissionError) Unwrap() error {
	return e.cause
}

// Rejected is returned when Launch or Revoke is not admitted. Task is the
// caller's computation, untouched and never started.
type Rejected[R any] struct {
	*AdmissionError
	Task Func[R]
}

// Unwrap returns the underlying AdmissionError.
func (e *Rejected[R]) Unwrap() error {
	return e.AdmissionError
}

// RejectedState returns the state that blocked an operation, if err is an
// admission rejection.
func RejectedState(err error) (State, bool) {
	var adm *AdmissionError
	if errors.As(err, &adm) {
		return adm.State, true
	}
	return "", false
}

// IsRejected reports whether err is an admission rejection.
func IsRejected(err error) bool {
	_, ok := RejectedState(err)
	return ok
}
