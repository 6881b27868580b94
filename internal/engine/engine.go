package engine

import (
	"errors"
	"fmt"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/logger"
	"github.com/samcharles93/modexp/internal/numeric"
)

// State is a step of one Compute call.
type State string

const (
	StateIdle               State = "idle"
	StateInputMapped        State = "input_mapped"
	StateDeviceWriteVisible State = "device_write_visible"
	StateKernelQueued       State = "kernel_queued"
	StateKernelComplete     State = "kernel_complete"
	StateOutputMapped       State = "output_mapped"
	StateOutputRead         State = "output_read"
)

type options struct {
	log     logger.Logger
	onState func(State)
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. State transitions are logged at debug level.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithStateHook calls fn on every state transition of Compute.
func WithStateHook(fn func(State)) Option {
	return func(o *options) {
		o.onState = fn
	}
}

// Engine computes x[i]^n mod q on a device for a fixed element count.
// It is not safe for concurrent use.
type Engine[T numeric.Number] struct {
	ctx     device.Context
	queue   device.Queue
	program device.Program
	kernel  device.Kernel
	input   *device.BufferHandle
	output  *device.BufferHandle
	n       int

	coherence device.Coherence

	log     logger.Logger
	onState func(State)

	profile    device.Profile
	hasProfile bool
}

// New builds the kernel source at path for T and allocates buffers for
// nElements elements.
func New[T numeric.Number](ctx device.Context, path string, nElements int, opts ...Option) (*Engine[T], error) {
	if nElements < 1 {
		return nil, invalidLength(nElements)
	}
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return NewFromSource[T](ctx, source, nElements, opts...)
}

// NewFromSource is New with the kernel source given in memory.
func NewFromSource[T numeric.Number](ctx device.Context, source string, nElements int, opts ...Option) (_ *Engine[T], err error) {
	if nElements < 1 {
		return nil, invalidLength(nElements)
	}

	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine[T]{
		ctx:     ctx,
		n:       nElements,
		log:     o.log.With("component", "engine", "type", numeric.GoType[T](), "elements", nElements),
		onState: o.onState,
	}
	defer func() {
		if err != nil {
			err = withRelease(err, e.Close())
		}
	}()

	e.program, e.kernel, err = loadKernel[T](ctx, source)
	if err != nil {
		return nil, err
	}

	e.queue, err = ctx.NewQueue(device.QueueProfiling)
	if err != nil {
		return nil, newError(KindDevice, err, "create queue")
	}

	size := nElements * numeric.Size[T]()
	in, err := ctx.AllocShared(size)
	if err != nil {
		return nil, newError(KindDevice, err, "allocate input buffer")
	}
	e.input = device.NewBufferHandle(e.queue, in)
	e.coherence = in.Coherence()

	out, err := ctx.AllocShared(size)
	if err != nil {
		return nil, newError(KindDevice, err, "allocate output buffer")
	}
	e.output = device.NewBufferHandle(e.queue, out)

	e.log.Debug("engine ready", "device", ctx.Device().Name, "coherence", in.Coherence().String(), "bytes", size)
	return e, nil
}

func invalidLength(n int) error {
	return newError(KindInvalidLength, nil, "element count %d, want at least 1", n)
}

// Len is the element count the engine was built for.
func (e *Engine[T]) Len() int {
	return e.n
}

// Coherence is the coherence of the engine's shared buffers.
func (e *Engine[T]) Coherence() device.Coherence {
	return e.coherence
}

// LastProfile returns the device timings of the most recent successful
// kernel execution.
func (e *Engine[T]) LastProfile() (device.Profile, bool) {
	return e.profile, e.hasProfile
}

func (e *Engine[T]) enter(s State) {
	e.log.Debug("state", "state", string(s))
	if e.onState != nil {
		e.onState(s)
	}
}

// Compute returns x[i]^n mod q for every element. len(x) must equal Len.
// Multiplication wraps at the width of T on the device as it does in Go.
// The kernel multiplies n times, so a negative n of a signed T performs no
// multiplication and every result is 1. reference.Exp takes the exponent as
// uint64; callers comparing the two paths must keep n non-negative.
// After a KindDevice error the engine should be closed.
func (e *Engine[T]) Compute(x []T, n, q T) ([]T, error) {
	if len(x) != e.n {
		return nil, &Error{Kind: KindLengthMismatch, Expected: e.n, Actual: len(x)}
	}
	if e.queue == nil {
		return nil, newError(KindDevice, device.ErrClosed, "engine closed")
	}
	e.enter(StateIdle)

	err := e.input.WithWrite(func(host []byte) error {
		e.enter(StateInputMapped)
		copy(host, numeric.AsBytes(x))
		return nil
	})
	if err != nil {
		return nil, newError(KindDevice, err, "write input")
	}
	e.enter(StateDeviceWriteVisible)

	if err := e.bind(n, q); err != nil {
		return nil, newError(KindDevice, err, "bind arguments")
	}

	ev, err := e.queue.EnqueueKernel(e.kernel, e.n)
	if err != nil {
		return nil, newError(KindDevice, err, "enqueue %s", EntryPoint)
	}
	defer func() { _ = ev.Close() }()
	e.enter(StateKernelQueued)

	if err := ev.Wait(); err != nil {
		return nil, newError(KindDevice, err, "execute %s", EntryPoint)
	}
	e.enter(StateKernelComplete)

	profile, perr := ev.Profile()
	if perr != nil && !errors.Is(perr, device.ErrProfilingUnavailable) {
		return nil, newError(KindDevice, perr, "read profile")
	}

	result := make([]T, e.n)
	err = e.output.WithRead(func(host []byte) error {
		e.enter(StateOutputMapped)
		if copied := copy(numeric.AsBytes(result), host); copied != len(result)*numeric.Size[T]() {
			return fmt.Errorf("short output read: %d bytes", copied)
		}
		e.enter(StateOutputRead)
		return nil
	})
	if err != nil {
		return nil, newError(KindDevice, err, "read output")
	}
	e.enter(StateIdle)

	e.profile, e.hasProfile = profile, perr == nil
	if e.hasProfile {
		e.log.Debug("kernel profile", "duration", profile.Duration(), "latency", profile.Latency())
	}
	return result, nil
}

func (e *Engine[T]) bind(n, q T) error {
	if err := e.kernel.SetArgBuffer(0, e.output.Buffer()); err != nil {
		return err
	}
	if err := e.kernel.SetArgBuffer(1, e.input.Buffer()); err != nil {
		return err
	}
	if err := e.kernel.SetArgBytes(2, numeric.ScalarBytes(n)); err != nil {
		return err
	}
	return e.kernel.SetArgBytes(3, numeric.ScalarBytes(q))
}

// Close releases the buffers, queue, kernel and program in reverse order of
// creation. The context is left open. Close is idempotent.
func (e *Engine[T]) Close() error {
	var errs []error
	if err := e.output.Close(); err != nil {
		errs = append(errs, fmt.Errorf("output buffer: %w", err))
	}
	e.output = nil
	if err := e.input.Close(); err != nil {
		errs = append(errs, fmt.Errorf("input buffer: %w", err))
	}
	e.input = nil
	if e.queue != nil {
		if err := e.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("queue: %w", err))
		}
		e.queue = nil
	}
	if e.kernel != nil {
		if err := e.kernel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kernel: %w", err))
		}
		e.kernel = nil
	}
	if e.program != nil {
		if err := e.program.Close(); err != nil {
			errs = append(errs, fmt.Errorf("program: %w", err))
		}
		e.program = nil
	}
	return errors.Join(errs...)
}
