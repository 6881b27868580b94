package engine

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/numeric"
)

// EntryPoint is the kernel every program must export.
const EntryPoint = "exp_device"

// BuildOptions returns the compiler options used to instantiate the kernel
// source for T.
func BuildOptions[T numeric.Number]() string {
	return strings.Join([]string{
		"-cl-std=CL2.0",
		"-cl-kernel-arg-info",
		"-D ELEMENT_TYPE=" + numeric.DeviceType[T](),
		"-D ELEMENT_WTYPE=" + numeric.DeviceWideType[T](),
	}, " ")
}

func readSource(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", newError(KindSourceRead, err, "%s", path)
	}
	return string(src), nil
}

// loadKernel builds source for T and resolves the entry point. On failure
// nothing it created is left alive.
func loadKernel[T numeric.Number](ctx device.Context, source string) (device.Program, device.Kernel, error) {
	prog, err := ctx.BuildProgram(source, BuildOptions[T]())
	if err != nil {
		return nil, nil, newError(KindCompile, err, "element type %s", numeric.DeviceType[T]())
	}

	kernel, err := prog.Kernel(EntryPoint)
	if err != nil {
		kind := KindDevice
		if errors.Is(err, device.ErrKernelNotFound) {
			kind = KindEntryPointNotFound
		}
		return nil, nil, withRelease(newError(kind, err, "%s", EntryPoint), prog.Close())
	}

	if err := validateContract[T](kernel); err != nil {
		return nil, nil, withRelease(err, kernel.Close(), prog.Close())
	}
	return prog, kernel, nil
}

// validateContract checks the entry point against
//
//	exp_device(__global T *out, __global const T *in, T n, T q)
//
// Argument types are checked only when the driver can report them.
func validateContract[T numeric.Number](k device.Kernel) error {
	n, err := k.NumArgs()
	if err != nil {
		return newError(KindDevice, err, "query %s arguments", k.Name())
	}
	if n != 4 {
		return newError(KindKernelContract, nil, "%s takes %d arguments, want 4", k.Name(), n)
	}

	args, err := k.Args()
	if errors.Is(err, device.ErrArgInfoUnavailable) {
		return nil
	}
	if err != nil {
		return newError(KindDevice, err, "describe %s arguments", k.Name())
	}

	want := numeric.DeviceType[T]()
	for i, a := range args {
		pointer := i < 2
		switch {
		case a.Pointer != pointer:
			return newError(KindKernelContract, nil, "%s argument %d (%s): %s", k.Name(), i, a.Name, shapeDetail(pointer))
		case pointer && a.AddressSpace != device.AddressGlobal:
			return newError(KindKernelContract, nil, "%s argument %d (%s) is in %s memory, want global", k.Name(), i, a.Name, a.AddressSpace)
		case a.TypeName != want:
			return newError(KindKernelContract, nil, "%s argument %d (%s) has type %s, want %s", k.Name(), i, a.Name, a.TypeName, want)
		}
	}
	return nil
}

func shapeDetail(pointer bool) string {
	if pointer {
		return "want a buffer pointer"
	}
	return "want a scalar"
}

// withRelease returns err unchanged unless a release during unwinding also
// failed, in which case both are joined.
func withRelease(err error, releases ...error) error {
	rerr := errors.Join(releases...)
	if rerr == nil {
		return err
	}
	return errors.Join(err, fmt.Errorf("release: %w", rerr))
}
