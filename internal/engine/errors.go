package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/modexp/internal/device"
)

// Kind categorizes an engine error.
type Kind string

const (
	KindNoPlatform         Kind = "no_platform"
	KindNoDevice           Kind = "no_device"
	KindSourceRead         Kind = "source_read"
	KindCompile            Kind = "compile"
	KindEntryPointNotFound Kind = "entry_point_not_found"
	KindKernelContract     Kind = "kernel_contract"
	KindInvalidLength      Kind = "invalid_length"
	KindLengthMismatch     Kind = "length_mismatch"
	KindDevice             Kind = "device"
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrNoPlatform         = &Error{Kind: KindNoPlatform}
	ErrNoDevice           = &Error{Kind: KindNoDevice}
	ErrSourceRead         = &Error{Kind: KindSourceRead}
	ErrCompile            = &Error{Kind: KindCompile}
	ErrEntryPointNotFound = &Error{Kind: KindEntryPointNotFound}
	ErrKernelContract     = &Error{Kind: KindKernelContract}
	ErrInvalidLength      = &Error{Kind: KindInvalidLength}
	ErrLengthMismatch     = &Error{Kind: KindLengthMismatch}
	ErrDevice             = &Error{Kind: KindDevice}
)

// Error is the single error type returned by context bootstrap, engine
// construction and Compute.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
	// Expected and Actual are set for KindLengthMismatch.
	Expected int
	Actual   int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("engine: ")
	b.WriteString(string(e.Kind))

	if e.Kind == KindLengthMismatch {
		fmt.Fprintf(&b, ": expected %d elements, got %d", e.Expected, e.Actual)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// BuildLog returns the compiler log carried by a KindCompile error,
// unmodified.
func (e *Error) BuildLog() string {
	var be *device.BuildError
	if e.Kind == KindCompile && errors.As(e.Cause, &be) {
		return be.Log
	}
	return ""
}

func newError(kind Kind, cause error, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}
