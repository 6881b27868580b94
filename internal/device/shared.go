package device

import (
	"errors"
	"fmt"
)

// BufferHandle runs the host side of the coherence protocol for one shared
// buffer. Under fine-grained coherence every acquire and release is a no-op;
// under coarse-grained coherence acquiring maps the buffer (blocking) and
// releasing unmaps it and waits until the device can see the host's writes.
type BufferHandle struct {
	queue Queue
	buf   Buffer
}

// NewBufferHandle binds b to the queue that carries its map commands.
func NewBufferHandle(q Queue, b Buffer) *BufferHandle {
	return &BufferHandle{queue: q, buf: b}
}

// Buffer returns the underlying buffer for kernel argument binding.
func (h *BufferHandle) Buffer() Buffer {
	return h.buf
}

// Coherence reports the buffer's coherence mode.
func (h *BufferHandle) Coherence() Coherence {
	return h.buf.Coherence()
}

func (h *BufferHandle) coarse() bool {
	return h.buf.Coherence() == CoarseGrained
}

func (h *BufferHandle) acquire(flags MapFlags) ([]byte, error) {
	if h.coarse() {
		if err := h.queue.Map(h.buf, flags); err != nil {
			return nil, fmt.Errorf("map buffer: %w", err)
		}
	}
	host, err := h.buf.Host()
	if err != nil {
		if h.coarse() {
			return nil, errors.Join(err, h.release())
		}
		return nil, err
	}
	return host, nil
}

func (h *BufferHandle) release() error {
	if !h.coarse() {
		return nil
	}
	ev, err := h.queue.Unmap(h.buf)
	if err != nil {
		return fmt.Errorf("unmap buffer: %w", err)
	}
	defer func() { _ = ev.Close() }()
	if err := ev.Wait(); err != nil {
		return fmt.Errorf("wait for unmap: %w", err)
	}
	return nil
}

// AcquireForWrite gives the host write access and returns the host view.
func (h *BufferHandle) AcquireForWrite() ([]byte, error) {
	return h.acquire(MapWrite)
}

// ReleaseAfterWrite publishes host writes to the device.
func (h *BufferHandle) ReleaseAfterWrite() error {
	return h.release()
}

// AcquireForRead gives the host read access to device results.
func (h *BufferHandle) AcquireForRead() ([]byte, error) {
	return h.acquire(MapRead)
}

// ReleaseAfterRead returns the buffer to the device.
func (h *BufferHandle) ReleaseAfterRead() error {
	return h.release()
}

// WithWrite calls fn with write access to the buffer and releases it on
// every return path. A release failure is joined with fn's error.
func (h *BufferHandle) WithWrite(fn func(host []byte) error) (err error) {
	host, err := h.AcquireForWrite()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := h.ReleaseAfterWrite(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(host)
}

// WithRead calls fn with read access to the buffer and releases it on every
// return path.
func (h *BufferHandle) WithRead(fn func(host []byte) error) (err error) {
	host, err := h.AcquireForRead()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := h.ReleaseAfterRead(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(host)
}

// Close releases the buffer.
func (h *BufferHandle) Close() error {
	if h == nil || h.buf == nil {
		return nil
	}
	err := h.buf.Close()
	h.buf = nil
	return err
}
