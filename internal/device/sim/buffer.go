package sim

import (
	"fmt"

	"github.com/samcharles93/modexp/internal/device"
)

// Buffer is a shared allocation in host memory.
type Buffer struct {
	ctx       *Context
	id        int
	mem       []byte
	free      func() error
	coherence device.Coherence

	// guarded by ctx.mu
	mapped   bool
	mapFlags device.MapFlags
	closed   bool
}

var _ device.Buffer = (*Buffer)(nil)

func (b *Buffer) Size() int {
	return len(b.mem)
}

func (b *Buffer) Coherence() device.Coherence {
	return b.coherence
}

func (b *Buffer) Host() ([]byte, error) {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	if b.closed {
		return nil, device.ErrClosed
	}
	if b.coherence == device.CoarseGrained && !b.mapped {
		return nil, fmt.Errorf("sim: buffer %d: %w", b.id, device.ErrNotMapped)
	}
	return b.mem, nil
}

// Mapped reports whether the host currently has the buffer mapped.
func (b *Buffer) Mapped() bool {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.mapped
}

func (b *Buffer) Close() error {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.mapped {
		b.mapped = false
		b.ctx.stats.Mapped--
	}
	b.ctx.stats.Buffers--
	b.mem = nil
	return b.free()
}
