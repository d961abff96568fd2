package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		code         ErrorCode
		message      string
		wantCategory ErrorCategory
	}{
		{"conflict", ErrCodeConflict, "key is working", CategoryTransient},
		{"canceled", ErrCodeCanceled, "caller gave up", CategoryTransient},
		{"not_found", ErrCodeNotFound, "no such task", CategoryPermanent},
		{"precondition", ErrCodePrecondition, "already revoked", CategoryPermanent},
		{"task_failed", ErrCodeTaskFailed, "upload failed", CategoryPermanent},
		{"assertion", ErrCodeAssertion, "state drifted", CategoryInternal},
		{"panic", ErrCodePanic, "boom", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.Code() != tt.code {
				t.Errorf("Code() = %v, want %v", err.Code(), tt.code)
			}
			if err.Category() != tt.wantCategory {
				t.Errorf("Category() = %v, want %v", err.Category(), tt.wantCategory)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.message)
			}
			if err.Timestamp().IsZero() {
				t.Error("Timestamp() should not be zero")
			}
		})
	}
}

func TestUnknownCodeIsInternal(t *testing.T) {
	code := ErrorCode("SOMETHING_ELSE")
	if code.DefaultCategory() != CategoryInternal {
		t.Errorf("DefaultCategory() = %v, want internal", code.DefaultCategory())
	}
	if code.Description() != "unknown error" {
		t.Errorf("Description() = %q", code.Description())
	}
}

func TestFromCode(t *testing.T) {
	err := FromCode(ErrCodeNotFound, WithKey("k1"))
	if err.Error() != "task not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Key() != "k1" {
		t.Errorf("Key() = %q, want k1", err.Key())
	}
}

func TestRetryable(t *testing.T) {
	if !Conflict("busy").Retryable() {
		t.Error("conflict should be retryable by default")
	}
	if NotFound("gone").Retryable() {
		t.Error("not found should not be retryable")
	}
	if Conflict("busy", WithRetryable(false)).Retryable() {
		t.Error("WithRetryable(false) should override the category")
	}
	if IsRetryable(io.EOF) {
		t.Error("plain errors are never retryable")
	}
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(ErrCodeConflict, "busy", WithMetadata("state", "working"))
	md := err.Metadata()
	md["state"] = "mutated"
	if err.Metadata()["state"] != "working" {
		t.Error("Metadata() should return a copy")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	base := Conflict("key busy", WithKey("k"))
	wrapped := Wrap(base, "launch upload")

	if wrapped.Code() != ErrCodeConflict {
		t.Errorf("Code() = %v, want CONFLICT", wrapped.Code())
	}
	if wrapped.Key() != "k" {
		t.Errorf("Key() = %q, want k", wrapped.Key())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match its cause")
	}
	if wrapped.Error() != "launch upload: key busy" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(io.ErrUnexpectedEOF, "reading chunk")
	if wrapped.Code() != ErrCodeInternal {
		t.Errorf("Code() = %v, want INTERNAL", wrapped.Code())
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("cause should be reachable")
	}
	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if WrapWithCode(nil, ErrCodeTaskFailed, "nothing") != nil {
		t.Error("WrapWithCode(nil) should return nil")
	}
}

func TestIsAndCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", Assertion("revision matched but state is success"))

	if !Is(err, ErrCodeAssertion) {
		t.Error("Is should see through fmt wrapping")
	}
	if Is(err, ErrCodeConflict) {
		t.Error("Is should not match a different code")
	}
	if Code(err) != ErrCodeAssertion {
		t.Errorf("Code() = %v", Code(err))
	}
	if !IsInternal(err) {
		t.Error("assertion errors are internal")
	}
	if Code(io.EOF) != "" || Category(io.EOF) != "" {
		t.Error("plain errors have no code or category")
	}
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", Conflict("busy"))
	var e *Error
	if !As(err, &e) {
		t.Fatal("As should find *Error")
	}
	if e.Code() != ErrCodeConflict {
		t.Errorf("Code() = %v", e.Code())
	}
}

func TestTaskFailed(t *testing.T) {
	err := TaskFailed("upload-1", "disk full")
	if err.Error() != "task upload-1 failed: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Key() != "upload-1" {
		t.Errorf("Key() = %q", err.Key())
	}
}

func TestRecoverPanic(t *testing.T) {
	if RecoverPanic(nil) != nil {
		t.Error("RecoverPanic(nil) should be nil")
	}

	err := RecoverPanic("boom", WithKey("k"))
	if err.Code() != ErrCodePanic {
		t.Errorf("Code() = %v", err.Code())
	}
	if err.Error() != "panic: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Metadata()["panic_value"] != "string" {
		t.Errorf("panic_value = %q", err.Metadata()["panic_value"])
	}

	err = RecoverPanic(io.ErrClosedPipe)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Error("recovered error should stay reachable")
	}
	if err.Error() != "panic: io: read/write on closed pipe" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = RecoverPanic(42)
	if err.Error() != "panic: 42" {
		t.Errorf("Error() = %q", err.Error())
	}
}
