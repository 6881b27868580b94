//go:build opencl

package opencl

import (
	"fmt"
	"sync"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/device/opencl/native"
)

// Queue is an in-order OpenCL command queue.
type Queue struct {
	ctx       *Context
	q         native.Queue
	profiling bool
}

func (q *Queue) buffer(b device.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf.ctx != q.ctx {
		return nil, device.ErrForeignObject
	}
	return buf, nil
}

func (q *Queue) Map(b device.Buffer, flags device.MapFlags) error {
	buf, err := q.buffer(b)
	if err != nil {
		return fmt.Errorf("opencl: map: %w", err)
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.mapped {
		return fmt.Errorf("opencl: map: %w", device.ErrMapped)
	}
	var clFlags uint64
	if flags&device.MapRead != 0 {
		clFlags |= native.MapRead
	}
	if flags&device.MapWrite != 0 {
		clFlags |= native.MapWrite
	}
	if err := native.EnqueueSVMMap(q.q, buf.mem, clFlags); err != nil {
		return fmt.Errorf("opencl: map: %w", err)
	}
	buf.mapped = true
	return nil
}

func (q *Queue) Unmap(b device.Buffer) (device.Event, error) {
	buf, err := q.buffer(b)
	if err != nil {
		return nil, fmt.Errorf("opencl: unmap: %w", err)
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if !buf.mapped {
		return nil, fmt.Errorf("opencl: unmap: %w", device.ErrNotMapped)
	}
	ev, err := native.EnqueueSVMUnmap(q.q, buf.mem)
	if err != nil {
		return nil, fmt.Errorf("opencl: unmap: %w", err)
	}
	buf.mapped = false
	return &Event{ev: ev, profiling: q.profiling}, nil
}

func (q *Queue) EnqueueKernel(k device.Kernel, globalSize int) (device.Event, error) {
	kernel, ok := k.(*Kernel)
	if !ok || kernel.ctx != q.ctx {
		return nil, fmt.Errorf("opencl: enqueue: %w", device.ErrForeignObject)
	}
	if globalSize <= 0 {
		return nil, fmt.Errorf("opencl: enqueue %s over %d items: %w", kernel.name, globalSize, device.ErrInvalidSize)
	}
	for i, buf := range kernel.bufs {
		if buf.isMapped() {
			return nil, fmt.Errorf("opencl: enqueue %s: arg %d: %w", kernel.name, i, device.ErrMapped)
		}
	}
	ev, err := native.EnqueueKernel(q.q, kernel.k, globalSize)
	if err != nil {
		if isCode(err, native.CodeInvalidKernelArgs) {
			return nil, fmt.Errorf("opencl: enqueue %s: %w", kernel.name, device.ErrArgsNotSet)
		}
		if isCode(err, native.CodeInvalidGlobalWorkSize) {
			return nil, fmt.Errorf("opencl: enqueue %s: %w: %w", kernel.name, device.ErrInvalidSize, err)
		}
		return nil, fmt.Errorf("opencl: enqueue %s: %w", kernel.name, err)
	}
	return &Event{ev: ev, profiling: q.profiling}, nil
}

func (q *Queue) Finish() error {
	return q.q.Finish()
}

func (q *Queue) Close() error {
	err := q.q.Release()
	q.q = native.Queue{}
	return err
}

// Event wraps a cl_event.
type Event struct {
	ev        native.Event
	profiling bool
	once      sync.Once
}

func (e *Event) Wait() error {
	if err := e.ev.Wait(); err != nil {
		return fmt.Errorf("opencl: wait: %w", err)
	}
	return nil
}

func (e *Event) Profile() (device.Profile, error) {
	if !e.profiling {
		return device.Profile{}, device.ErrProfilingUnavailable
	}
	var p device.Profile
	fields := []struct {
		param uint32
		dst   *uint64
	}{
		{native.ProfilingCommandQueued, &p.Queued},
		{native.ProfilingCommandSubmit, &p.Submit},
		{native.ProfilingCommandStart, &p.Start},
		{native.ProfilingCommandEnd, &p.End},
	}
	for _, f := range fields {
		v, err := e.ev.ProfilingInfo(f.param)
		if err != nil {
			if isCode(err, native.CodeProfilingInfoNotAvailable) {
				return device.Profile{}, device.ErrProfilingUnavailable
			}
			return device.Profile{}, fmt.Errorf("opencl: profiling info: %w", err)
		}
		*f.dst = v
	}
	return p, nil
}

func (e *Event) Close() error {
	var err error
	e.once.Do(func() { err = e.ev.Release() })
	return err
}

// Buffer is an SVM allocation.
type Buffer struct {
	ctx       *Context
	mem       native.SVM
	coherence device.Coherence

	mu     sync.Mutex
	mapped bool
	closed bool
}

func (b *Buffer) Size() int {
	return len(b.mem.Bytes())
}

func (b *Buffer) Coherence() device.Coherence {
	return b.coherence
}

func (b *Buffer) Host() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, device.ErrClosed
	}
	if b.coherence == device.CoarseGrained && !b.mapped {
		return nil, device.ErrNotMapped
	}
	return b.mem.Bytes(), nil
}

func (b *Buffer) isMapped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapped
}

func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem.Free()
	return nil
}
