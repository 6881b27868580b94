//go:build opencl

package opencl

import (
	"errors"
	"fmt"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/device/opencl/native"
)

// Context owns one OpenCL context on a single device.
type Context struct {
	ctx  native.Context
	dev  native.Device
	info device.DeviceInfo
}

var _ device.Context = (*Context)(nil)

func (c *Context) Device() device.DeviceInfo {
	return c.info
}

func (c *Context) BuildProgram(source, options string) (device.Program, error) {
	prog, log, err := native.BuildProgram(c.ctx, c.dev, source, options)
	if err != nil {
		var clErr *native.Error
		if errors.As(err, &clErr) {
			switch clErr.Code {
			case native.CodeBuildProgramFailure:
				return nil, &device.BuildError{Log: log}
			case native.CodeInvalidBuildOptions:
				return nil, fmt.Errorf("opencl: %q: %w", options, device.ErrInvalidBuildOptions)
			}
		}
		return nil, fmt.Errorf("opencl: build program: %w", err)
	}
	return &Program{ctx: c, prog: prog}, nil
}

func (c *Context) NewQueue(props device.QueueProperties) (device.Queue, error) {
	var flags uint64
	if props&device.QueueProfiling != 0 {
		flags |= native.QueueProfilingEnable
	}
	q, err := native.NewQueue(c.ctx, c.dev, flags)
	if err != nil {
		return nil, fmt.Errorf("opencl: create queue: %w", err)
	}
	return &Queue{ctx: c, q: q, profiling: props&device.QueueProfiling != 0}, nil
}

func (c *Context) AllocShared(size int) (device.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("opencl: alloc %d bytes: %w", size, device.ErrInvalidSize)
	}
	coherence := device.CoarseGrained
	flags := uint64(native.MemReadWrite)
	if c.info.FineGrainedSVM {
		coherence = device.FineGrained
		flags |= native.MemSVMFineGrainBuffer
	}
	mem, err := native.AllocSVM(c.ctx, flags, size)
	if err != nil {
		return nil, fmt.Errorf("opencl: %w", err)
	}
	return &Buffer{ctx: c, mem: mem, coherence: coherence}, nil
}

func (c *Context) Close() error {
	err := c.ctx.Release()
	c.ctx = native.Context{}
	return err
}
