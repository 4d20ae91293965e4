// Package errors holds the sentinel errors and typed errors shared by the
// mailbox, the wait coordinator and the tool server.
//
// Two typed errors carry context:
//   - StoreError: a store backend failed to read or write the record
//   - ValidationError: a caller supplied a bad argument
//
// Both unwrap to their cause, so sentinel checks work through them:
//
//	if errors.Is(err, errors.ErrStoreRead) { ... }
//
//	var vErr *errors.ValidationError
//	if errors.As(err, &vErr) { ... vErr.Field ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard library helpers, re-exported so callers need a single import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

var (
	// ErrInvalidMode is returned for a message mode outside the fixed set.
	ErrInvalidMode = New("invalid message mode")
	// ErrInvalidArgument is returned for a bad wait argument, such as a
	// non-positive timeout.
	ErrInvalidArgument = New("invalid argument")
	// ErrInvalidInput matches every ValidationError.
	ErrInvalidInput = New("invalid input")

	ErrStoreRead  = New("store read failure")
	ErrStoreWrite = New("store write failure")

	// ErrCanceled is returned when the caller abandons a wait.
	ErrCanceled = New("operation canceled")
	// ErrUnknownTool is returned for a tool name the server does not expose.
	ErrUnknownTool = New("unknown tool")
)

// StoreError reports a failed store operation. Read failures are
// transient from the waiter's side: the next poll reads the record again.
type StoreError struct {
	Op      string
	Backend string
	Path    string
	Err     error
}

// NewStoreError returns a StoreError for op caused by err.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) WithBackend(backend string) *StoreError {
	e.Backend = backend
	return e
}

func (e *StoreError) WithPath(path string) *StoreError {
	e.Path = path
	return e
}

func (e *StoreError) Error() string {
	var b strings.Builder
	b.WriteString("store")
	if e.Backend != "" {
		b.WriteString(" " + e.Backend)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	b.WriteString(": " + e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError reports an invalid caller-supplied value. Its message is
// safe to return to clients.
type ValidationError struct {
	Reason string
	Field  string
	Value  any
	Err    error
}

// NewValidationError returns a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause records the sentinel or underlying error.
func (e *ValidationError) WithCause(err error) *ValidationError {
	e.Err = err
	return e
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		b.WriteString(e.Field + ": ")
	}
	b.WriteString(e.Reason)
	if e.Value != nil {
		fmt.Fprintf(&b, " (got %v)", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsUserFacing reports whether err's message can be shown to a client
// as-is.
func IsUserFacing(err error) bool {
	var vErr *ValidationError
	return As(err, &vErr)
}

// IsTransient reports whether err is a store read failure that a later
// poll may not repeat.
func IsTransient(err error) bool {
	var sErr *StoreError
	return As(err, &sErr) && Is(sErr, ErrStoreRead)
}

// Wrap annotates err with message. It returns nil for a nil err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
