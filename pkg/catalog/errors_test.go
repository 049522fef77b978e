package catalog

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcileError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ReconcileError
		want string
	}{
		{
			name: "kind and message only",
			err:  NewNotFoundError("service not found", nil),
			want: "[not_found] service not found",
		},
		{
			name: "with resource",
			err:  NewAmbiguousStateError("2 services match", nil).WithResource("keystone"),
			want: "[ambiguous_state] 2 services match (resource=keystone)",
		},
		{
			name: "with resource and operation",
			err: NewNotSupportedError("endpoint drift", nil).
				WithResource("glance").
				WithOperation("ensure-endpoint"),
			want: "[not_supported] endpoint drift (resource=glance, operation=ensure-endpoint)",
		},
		{
			name: "with underlying error",
			err:  NewRemoteError("list services failed", fmt.Errorf("connection refused")),
			want: "[remote] list services failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestReconcileError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("dial tcp: timeout")
	err := NewRemoteError("create endpoint failed", underlying)

	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to find the underlying error")
	}
	if err.Unwrap() != underlying {
		t.Error("expected Unwrap to return the underlying error")
	}
}

func TestReconcileError_Is(t *testing.T) {
	err := NewNotFoundError("service not found", nil).WithResource("keystone")

	if !errors.Is(err, &ReconcileError{Kind: ErrorKindNotFound}) {
		t.Error("expected errors with matching kinds to match")
	}
	if errors.Is(err, &ReconcileError{Kind: ErrorKindRemote}) {
		t.Error("expected errors with different kinds not to match")
	}
	if errors.Is(err, fmt.Errorf("plain error")) {
		t.Error("expected plain errors not to match")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not found", NewNotFoundError("missing", nil), ErrorKindNotFound},
		{"ambiguous", NewAmbiguousStateError("dup", nil), ErrorKindAmbiguousState},
		{"not supported", NewNotSupportedError("drift", nil), ErrorKindNotSupported},
		{"unimplemented", NewUnimplementedError("removal", nil), ErrorKindUnimplemented},
		{"invalid argument", NewInvalidArgumentError("bad state", nil), ErrorKindInvalidArgument},
		{"remote", NewRemoteError("boom", nil), ErrorKindRemote},
		{"wrapped", fmt.Errorf("context: %w", NewNotFoundError("missing", nil)), ErrorKindNotFound},
		{"plain", fmt.Errorf("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("expected kind %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if !IsNotFound(NewNotFoundError("missing", nil)) {
		t.Error("expected IsNotFound to be true")
	}
	if !IsAmbiguousState(NewAmbiguousStateError("dup", nil)) {
		t.Error("expected IsAmbiguousState to be true")
	}
	if !IsNotSupported(NewNotSupportedError("drift", nil)) {
		t.Error("expected IsNotSupported to be true")
	}
	if !IsUnimplemented(NewUnimplementedError("removal", nil)) {
		t.Error("expected IsUnimplemented to be true")
	}
	if !IsInvalidArgument(NewInvalidArgumentError("bad", nil)) {
		t.Error("expected IsInvalidArgument to be true")
	}
	if !IsRemote(NewRemoteError("boom", nil)) {
		t.Error("expected IsRemote to be true")
	}
	if IsNotFound(NewRemoteError("boom", nil)) {
		t.Error("expected IsNotFound to be false for a remote error")
	}
}

func TestIsFatal(t *testing.T) {
	// Not-found is the normal create-path condition, everything else aborts
	// the entry.
	if IsFatal(NewNotFoundError("missing", nil)) {
		t.Error("expected not-found to be non-fatal")
	}
	if IsFatal(fmt.Errorf("unclassified")) {
		t.Error("expected unclassified errors to be non-fatal")
	}
	if IsFatal(nil) {
		t.Error("expected nil to be non-fatal")
	}

	fatal := []error{
		NewAmbiguousStateError("dup", nil),
		NewNotSupportedError("drift", nil),
		NewUnimplementedError("removal", nil),
		NewInvalidArgumentError("bad", nil),
		NewRemoteError("boom", nil),
	}
	for _, err := range fatal {
		if !IsFatal(err) {
			t.Errorf("expected %v to be fatal", err)
		}
	}
}

func TestWrappedChain(t *testing.T) {
	// A remote error wrapping another classified error reports the outer
	// kind; errors.As walks to the first ReconcileError.
	inner := NewNotFoundError("missing", nil)
	outer := NewRemoteError("list failed", inner)

	if KindOf(outer) != ErrorKindRemote {
		t.Errorf("expected outer kind remote, got %s", KindOf(outer))
	}
	if !strings.Contains(outer.Error(), "missing") {
		t.Errorf("expected message chain to include inner message, got %q", outer.Error())
	}
}
