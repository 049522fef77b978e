package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a reconciliation failure so callers can pick the
// correct recovery behavior.
type ErrorKind string

const (
	// ErrorKindNotFound indicates zero matches on lookup. This is the
	// normal "absent" condition and drives the create path.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindAmbiguousState indicates more than one match on lookup,
	// an integrity violation in the remote system. Fatal, never
	// auto-resolved by picking a match.
	ErrorKindAmbiguousState ErrorKind = "ambiguous_state"

	// ErrorKindNotSupported indicates the existing resource differs from
	// the desired state in a field this tool cannot mutate. Update in
	// place is a deliberate capability limit.
	ErrorKindNotSupported ErrorKind = "not_supported"

	// ErrorKindUnimplemented indicates the requested operation (removal)
	// does not exist yet. Fatal by design, not a placeholder bug.
	ErrorKindUnimplemented ErrorKind = "unimplemented"

	// ErrorKindInvalidArgument indicates a malformed disposition or a
	// missing required field, caught before any remote call.
	ErrorKindInvalidArgument ErrorKind = "invalid_argument"

	// ErrorKindRemote indicates a transport or remote-system failure
	// propagated unchanged from the identity client.
	ErrorKindRemote ErrorKind = "remote"
)

// ReconcileError is a classified error with resource and operation context.
type ReconcileError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Resource is the catalog entry name that caused the error, if any.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	switch {
	case e.Resource != "" && e.Operation != "":
		return fmt.Sprintf("[%s] %s (resource=%s, operation=%s)%s",
			e.Kind, e.Message, e.Resource, e.Operation, e.unwrapSuffix())
	case e.Resource != "":
		return fmt.Sprintf("[%s] %s (resource=%s)%s",
			e.Kind, e.Message, e.Resource, e.unwrapSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Kind, e.Message, e.unwrapSuffix())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

func (e *ReconcileError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is: two ReconcileErrors match
// when their kinds match.
func (e *ReconcileError) Is(target error) bool {
	t, ok := target.(*ReconcileError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithResource adds resource context to the error.
func (e *ReconcileError) WithResource(name string) *ReconcileError {
	e.Resource = name
	return e
}

// WithOperation adds operation context to the error.
func (e *ReconcileError) WithOperation(operation string) *ReconcileError {
	e.Operation = operation
	return e
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string, err error) *ReconcileError {
	return &ReconcileError{Kind: ErrorKindNotFound, Message: message, Err: err}
}

// NewAmbiguousStateError creates a new ambiguous-state error.
func NewAmbiguousStateError(message string, err error) *ReconcileError {
	return &ReconcileError{Kind: ErrorKindAmbiguousState, Message: message, Err: err}
}

// NewNotSupportedError creates a new not-supported error.
func NewNotSupportedError(message string, err error) *ReconcileError {
	return &ReconcileError{Kind: ErrorKindNotSupported, Message: message, Err: err}
}

// NewUnimplementedError creates a new unimplemented error.
func NewUnimplementedError(message string, err error) *ReconcileError {
	return &ReconcileError{Kind: ErrorKindUnimplemented, Message: message, Err: err}
}

// NewInvalidArgumentError creates a new invalid-argument error.
func NewInvalidArgumentError(message string, err error) *ReconcileError {
	return &ReconcileError{Kind: ErrorKindInvalidArgument, Message: message, Err: err}
}

// NewRemoteError wraps a transport or remote-system failure.
func NewRemoteError(message string, err error) *ReconcileError {
	return &ReconcileError{Kind: ErrorKindRemote, Message: message, Err: err}
}

// KindOf returns the classification of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *ReconcileError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound returns true if the error is classified as not found.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}

// IsAmbiguousState returns true if the error is classified as ambiguous state.
func IsAmbiguousState(err error) bool {
	return KindOf(err) == ErrorKindAmbiguousState
}

// IsNotSupported returns true if the error is classified as not supported.
func IsNotSupported(err error) bool {
	return KindOf(err) == ErrorKindNotSupported
}

// IsUnimplemented returns true if the error is classified as unimplemented.
func IsUnimplemented(err error) bool {
	return KindOf(err) == ErrorKindUnimplemented
}

// IsInvalidArgument returns true if the error is classified as invalid argument.
func IsInvalidArgument(err error) bool {
	return KindOf(err) == ErrorKindInvalidArgument
}

// IsRemote returns true if the error is a propagated remote failure.
func IsRemote(err error) bool {
	return KindOf(err) == ErrorKindRemote
}

// IsFatal returns true for error kinds that must abort the current entry:
// everything except not-found, which is a normal condition consumed by the
// create path.
func IsFatal(err error) bool {
	kind := KindOf(err)
	return kind != "" && kind != ErrorKindNotFound
}
