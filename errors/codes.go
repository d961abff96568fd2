package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates the same call may succeed later.
	// Examples: a key that is still working, a canceled caller.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, a revoke against a key that does not exist.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors, bugs, or recovered panics.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Transient errors
	ErrCodeConflict ErrorCode = "CONFLICT" // Key is held by another operation
	ErrCodeCanceled ErrorCode = "CANCELED" // Caller gave up waiting

	// Permanent errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"     // Key has no recorded task
	ErrCodePrecondition ErrorCode = "PRECONDITION"  // Key is settled in a state the operation cannot start from
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed argument or config
	ErrCodeTaskFailed   ErrorCode = "TASK_FAILED"   // Task body returned an error

	// Internal errors
	ErrCodeInternal  ErrorCode = "INTERNAL"  // Unexpected internal error
	ErrCodeAssertion ErrorCode = "ASSERTION" // Invariant violation
	ErrCodePanic     ErrorCode = "PANIC"     // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeConflict, ErrCodeCanceled:
		return CategoryTransient
	case ErrCodeNotFound, ErrCodePrecondition, ErrCodeInvalidInput, ErrCodeTaskFailed:
		return CategoryPermanent
	default:
		return CategoryInternal
	}
}

var codeDescriptions = map[ErrorCode]string{
	ErrCodeConflict:     "conflicting operation in progress",
	ErrCodeCanceled:     "operation canceled",
	ErrCodeNotFound:     "task not found",
	ErrCodePrecondition: "precondition failed",
	ErrCodeInvalidInput: "invalid input provided",
	ErrCodeTaskFailed:   "task execution failed",
	ErrCodeInternal:     "internal error",
	ErrCodeAssertion:    "assertion failed",
	ErrCodePanic:        "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
