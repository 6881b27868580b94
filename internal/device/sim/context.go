package sim

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/samcharles93/modexp/internal/device"
)

// Op names a device operation for tracing and fault injection.
type Op string

const (
	OpBuild        Op = "build"
	OpCreateKernel Op = "create-kernel"
	OpCreateQueue  Op = "create-queue"
	OpAlloc        Op = "alloc"
	OpSetArg       Op = "set-arg"
	OpMap          Op = "map"
	OpUnmap        Op = "unmap"
	OpEnqueue      Op = "enqueue-kernel"
	OpWait         Op = "wait"
)

// TraceEntry is one recorded device operation.
type TraceEntry struct {
	Op     Op
	Detail string
}

// Stats counts live objects created from a context.
type Stats struct {
	Programs int
	Kernels  int
	Queues   int
	Buffers  int
	Mapped   int
}

// Live is the total number of unreleased objects.
func (s Stats) Live() int {
	return s.Programs + s.Kernels + s.Queues + s.Buffers
}

// Context is a simulated execution context.
type Context struct {
	info      device.DeviceInfo
	coherence device.Coherence
	epoch     time.Time

	mu     sync.Mutex
	faults map[Op]error
	stats  Stats
	trace  []TraceEntry
	nextID int
	closed bool
}

var _ device.Context = (*Context)(nil)

func newContext(info device.DeviceInfo, coherence device.Coherence, faults map[Op]error) *Context {
	c := &Context{
		info:      info,
		coherence: coherence,
		epoch:     time.Now(),
		faults:    make(map[Op]error),
	}
	maps.Copy(c.faults, faults)
	return c
}

func (c *Context) Device() device.DeviceInfo {
	return c.info
}

// SetFault makes every subsequent op fail with err. A nil err clears it.
func (c *Context) SetFault(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.faults, op)
		return
	}
	c.faults[op] = err
}

// Stats returns the live object counts.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Trace returns the operations recorded since the last ResetTrace.
func (c *Context) Trace() []TraceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TraceEntry, len(c.trace))
	copy(out, c.trace)
	return out
}

// Ops returns the op names of Trace.
func (c *Context) Ops() []Op {
	trace := c.Trace()
	out := make([]Op, len(trace))
	for i, e := range trace {
		out[i] = e.Op
	}
	return out
}

// ResetTrace discards the recorded operations.
func (c *Context) ResetTrace() {
	c.mu.Lock()
	c.trace = nil
	c.mu.Unlock()
}

// Close releases the context. Objects created from it must be closed first.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if live := c.stats.Live(); live > 0 {
		return fmt.Errorf("sim: context closed with %d live objects", live)
	}
	return nil
}

// begin records op and returns its injected fault, if any. c.mu must be held.
func (c *Context) begin(op Op, detail string) error {
	if c.closed {
		return device.ErrClosed
	}
	c.trace = append(c.trace, TraceEntry{Op: op, Detail: detail})
	if err := c.faults[op]; err != nil {
		return fmt.Errorf("sim: injected %s fault: %w", op, err)
	}
	return nil
}

func (c *Context) now() uint64 {
	return uint64(time.Since(c.epoch))
}

func (c *Context) newID() int {
	c.nextID++
	return c.nextID
}

func (c *Context) AllocShared(size int) (device.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpAlloc, fmt.Sprintf("%d bytes", size)); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("sim: alloc %d bytes: %w", size, device.ErrInvalidSize)
	}
	mem, free, err := allocShared(size)
	if err != nil {
		return nil, fmt.Errorf("sim: alloc %d bytes: %w", size, err)
	}
	c.stats.Buffers++
	return &Buffer{ctx: c, id: c.newID(), mem: mem, free: free, coherence: c.coherence}, nil
}

func (c *Context) NewQueue(props device.QueueProperties) (device.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpCreateQueue, ""); err != nil {
		return nil, err
	}
	c.stats.Queues++
	return &Queue{ctx: c, profiling: props&device.QueueProfiling != 0}, nil
}

func (c *Context) BuildProgram(source, options string) (device.Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(OpBuild, options); err != nil {
		return nil, err
	}
	unit, err := compile(source, options)
	if err != nil {
		return nil, err
	}
	c.stats.Programs++
	return &Program{ctx: c, unit: unit}, nil
}
