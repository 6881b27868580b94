package device

import (
	"errors"
	"fmt"
)

var (
	// ErrDriverUnavailable is returned when a driver is not compiled into
	// this build or its runtime library cannot be used.
	ErrDriverUnavailable = errors.New("device: driver unavailable")

	// ErrBuild is returned when a program fails to compile.
	ErrBuild = errors.New("device: program build failed")

	// ErrInvalidBuildOptions is returned for compiler options the driver
	// does not accept.
	ErrInvalidBuildOptions = errors.New("device: invalid build options")

	// ErrKernelNotFound is returned when a program has no entry point with
	// the requested name.
	ErrKernelNotFound = errors.New("device: kernel not found")

	// ErrArgInfoUnavailable is returned when a driver cannot describe
	// kernel parameters.
	ErrArgInfoUnavailable = errors.New("device: kernel argument info unavailable")

	// ErrInvalidArg is returned for an out-of-range index or a value of
	// the wrong size.
	ErrInvalidArg = errors.New("device: invalid kernel argument")

	// ErrArgsNotSet is returned when a kernel is enqueued before every
	// argument has been bound.
	ErrArgsNotSet = errors.New("device: kernel arguments not set")

	// ErrNotMapped is returned on host access to an unmapped
	// coarse-grained buffer.
	ErrNotMapped = errors.New("device: buffer not mapped")

	// ErrMapped is returned when the device is asked to use a buffer the
	// host still has mapped, or a buffer is mapped twice.
	ErrMapped = errors.New("device: buffer mapped by host")

	// ErrForeignObject is returned when an object from another context is
	// passed in.
	ErrForeignObject = errors.New("device: object belongs to another context")

	// ErrClosed is returned on use of a released object.
	ErrClosed = errors.New("device: object closed")

	// ErrProfilingUnavailable is returned by Event.Profile when the queue
	// was created without profiling or the command has not completed.
	ErrProfilingUnavailable = errors.New("device: profiling info unavailable")

	// ErrInvalidSize is returned for empty or oversized allocations and
	// work ranges.
	ErrInvalidSize = errors.New("device: invalid size")
)

// BuildError carries the compiler log of a failed build.
type BuildError struct {
	Log string
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return ErrBuild.Error()
	}
	return fmt.Sprintf("%v:\n%s", ErrBuild, e.Log)
}

func (e *BuildError) Unwrap() error {
	return ErrBuild
}
