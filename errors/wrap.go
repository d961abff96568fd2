package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context.
// If err is already an *Error, its code and category are preserved.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var inner *Error
	if errors.As(err, &inner) {
		e := &Error{
			code:      inner.code,
			category:  inner.category,
			message:   message,
			cause:     err,
			retryable: inner.retryable,
			key:       inner.key,
			timestamp: inner.timestamp,
		}
		for _, opt := range opts {
			opt(e)
		}
		return e
	}

	return New(ErrCodeInternal, message, append([]Option{WithCause(err)}, opts...)...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error and assigns a specific code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	return New(code, message, append([]Option{WithCause(err)}, opts...)...)
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.code == code
	}
	return false
}

// As finds the first error in err's chain that matches target.
// Uses errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Code extracts the error code from an error, if available.
// Returns empty string if err carries no *Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
func Category(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.category
	}
	return ""
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// IsInternal checks if the error is an internal error.
func IsInternal(err error) bool {
	return Category(err) == CategoryInternal
}

// RecoverPanic converts a recovered panic value into an Error.
// A recovered error value becomes the cause so callers can still match it.
func RecoverPanic(recovered interface{}, opts ...Option) *Error {
	if recovered == nil {
		return nil
	}
	opts = append([]Option{WithMetadata("panic_value", fmt.Sprintf("%T", recovered))}, opts...)
	switch v := recovered.(type) {
	case error:
		return New(ErrCodePanic, "panic", append(opts, WithCause(v))...)
	case string:
		return New(ErrCodePanic, "panic: "+v, opts...)
	default:
		return New(ErrCodePanic, fmt.Sprintf("panic: %v", v), opts...)
	}
}
