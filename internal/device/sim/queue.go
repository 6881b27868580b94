package sim

import (
	"fmt"

	"github.com/samcharles93/modexp/internal/device"
)

// Queue is an in-order simulated command queue. Each command starts only
// after the previous one has completed.
type Queue struct {
	ctx       *Context
	profiling bool

	// guarded by ctx.mu
	tail   *Event
	closed bool
}

var _ device.Queue = (*Queue)(nil)

// Event completes when its command has run.
type Event struct {
	ctx       *Context
	profiling bool
	done      chan struct{}
	err       error
	profile   device.Profile
}

var _ device.Event = (*Event)(nil)

func (e *Event) Wait() error {
	<-e.done
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()
	if err := e.ctx.begin(OpWait, ""); err != nil {
		return err
	}
	return e.err
}

func (e *Event) Profile() (device.Profile, error) {
	if !e.profiling {
		return device.Profile{}, device.ErrProfilingUnavailable
	}
	select {
	case <-e.done:
		return e.profile, nil
	default:
		return device.Profile{}, device.ErrProfilingUnavailable
	}
}

func (e *Event) Close() error {
	return nil
}

func (q *Queue) buffer(b device.Buffer) (*Buffer, error) {
	sb, ok := b.(*Buffer)
	if !ok || sb.ctx != q.ctx {
		return nil, device.ErrForeignObject
	}
	if sb.closed {
		return nil, device.ErrClosed
	}
	return sb, nil
}

// submit appends a command to the queue. run is called without ctx.mu held
// once every earlier command has completed. q.ctx.mu must be held.
func (q *Queue) submit(run func() error) *Event {
	ev := &Event{ctx: q.ctx, profiling: q.profiling, done: make(chan struct{})}
	ev.profile.Queued = q.ctx.now()
	prev := q.tail
	q.tail = ev
	go func() {
		if prev != nil {
			<-prev.done
		}
		ev.profile.Submit = q.ctx.now()
		ev.profile.Start = ev.profile.Submit
		ev.err = run()
		ev.profile.End = q.ctx.now()
		close(ev.done)
	}()
	return ev
}

func (q *Queue) Map(b device.Buffer, flags device.MapFlags) error {
	q.ctx.mu.Lock()
	if err := q.ctx.begin(OpMap, mapDetail(flags)); err != nil {
		q.ctx.mu.Unlock()
		return err
	}
	if q.closed {
		q.ctx.mu.Unlock()
		return device.ErrClosed
	}
	sb, err := q.buffer(b)
	if err != nil {
		q.ctx.mu.Unlock()
		return err
	}
	tail := q.tail
	q.ctx.mu.Unlock()

	// blocking map: wait for every earlier command
	if tail != nil {
		<-tail.done
	}

	q.ctx.mu.Lock()
	defer q.ctx.mu.Unlock()
	if sb.closed {
		return device.ErrClosed
	}
	if sb.mapped {
		return fmt.Errorf("sim: buffer %d: %w", sb.id, device.ErrMapped)
	}
	sb.mapped = true
	sb.mapFlags = flags
	q.ctx.stats.Mapped++
	return nil
}

func (q *Queue) Unmap(b device.Buffer) (device.Event, error) {
	q.ctx.mu.Lock()
	defer q.ctx.mu.Unlock()
	if err := q.ctx.begin(OpUnmap, ""); err != nil {
		return nil, err
	}
	if q.closed {
		return nil, device.ErrClosed
	}
	sb, err := q.buffer(b)
	if err != nil {
		return nil, err
	}
	if !sb.mapped {
		return nil, fmt.Errorf("sim: buffer %d: %w", sb.id, device.ErrNotMapped)
	}
	return q.submit(func() error {
		q.ctx.mu.Lock()
		defer q.ctx.mu.Unlock()
		if sb.mapped {
			sb.mapped = false
			q.ctx.stats.Mapped--
		}
		return nil
	}), nil
}

func (q *Queue) EnqueueKernel(k device.Kernel, globalSize int) (device.Event, error) {
	q.ctx.mu.Lock()
	defer q.ctx.mu.Unlock()
	sk, ok := k.(*Kernel)
	if !ok || sk.ctx != q.ctx {
		return nil, device.ErrForeignObject
	}
	if err := q.ctx.begin(OpEnqueue, sk.decl.name); err != nil {
		return nil, err
	}
	if q.closed || sk.closed {
		return nil, device.ErrClosed
	}
	if globalSize <= 0 {
		return nil, fmt.Errorf("sim: global size %d: %w", globalSize, device.ErrInvalidSize)
	}
	for i, a := range sk.args {
		if !a.set {
			return nil, fmt.Errorf("sim: kernel %s arg %d: %w", sk.decl.name, i, device.ErrArgsNotSet)
		}
	}
	run, ok := builtins[sk.decl.name]
	if !ok {
		return nil, fmt.Errorf("sim: kernel %s has no built-in implementation: %w", sk.decl.name, device.ErrKernelNotFound)
	}

	l := launch{
		kernel: sk.decl.name,
		params: sk.decl.params,
		args:   append([]argValue(nil), sk.args...),
		global: globalSize,
		units:  q.ctx.info.ComputeUnits,
	}
	return q.submit(func() error {
		q.ctx.mu.Lock()
		for i, a := range l.args {
			if a.buf == nil {
				continue
			}
			if a.buf.closed {
				q.ctx.mu.Unlock()
				return fmt.Errorf("sim: kernel %s arg %d: %w", l.kernel, i, device.ErrClosed)
			}
			if a.buf.mapped {
				q.ctx.mu.Unlock()
				return fmt.Errorf("sim: kernel %s arg %d: %w", l.kernel, i, device.ErrMapped)
			}
		}
		q.ctx.mu.Unlock()
		return run(l)
	}), nil
}

func (q *Queue) Finish() error {
	q.ctx.mu.Lock()
	tail := q.tail
	q.ctx.mu.Unlock()
	if tail != nil {
		<-tail.done
	}
	return nil
}

func (q *Queue) Close() error {
	if err := q.Finish(); err != nil {
		return err
	}
	q.ctx.mu.Lock()
	defer q.ctx.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.ctx.stats.Queues--
	return nil
}

func mapDetail(flags device.MapFlags) string {
	switch flags {
	case device.MapRead:
		return "read"
	case device.MapWrite:
		return "write"
	case device.MapRead | device.MapWrite:
		return "read-write"
	default:
		return ""
	}
}
