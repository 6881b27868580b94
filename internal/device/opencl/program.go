//go:build opencl

package opencl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/device/opencl/native"
)

// Program is a built OpenCL program.
type Program struct {
	ctx  *Context
	prog native.Program
}

func (p *Program) Kernel(name string) (device.Kernel, error) {
	k, err := native.CreateKernel(p.prog, name)
	if err != nil {
		if isCode(err, native.CodeInvalidKernelName) {
			return nil, fmt.Errorf("opencl: %q: %w", name, device.ErrKernelNotFound)
		}
		return nil, fmt.Errorf("opencl: create kernel %q: %w", name, err)
	}
	return &Kernel{ctx: p.ctx, k: k, name: name, bufs: make(map[int]*Buffer)}, nil
}

func (p *Program) Close() error {
	err := p.prog.Release()
	p.prog = native.Program{}
	return err
}

// Kernel is an OpenCL kernel object. It remembers the buffers bound to it
// so the queue can refuse to launch while one is mapped.
type Kernel struct {
	ctx  *Context
	k    native.Kernel
	name string
	bufs map[int]*Buffer
}

func (k *Kernel) Name() string {
	return k.name
}

func (k *Kernel) NumArgs() (int, error) {
	n, err := k.k.NumArgs()
	if err != nil {
		return 0, fmt.Errorf("opencl: kernel %s: %w", k.name, err)
	}
	return n, nil
}

func (k *Kernel) Args() ([]device.ArgInfo, error) {
	n, err := k.NumArgs()
	if err != nil {
		return nil, err
	}
	out := make([]device.ArgInfo, n)
	for i := range n {
		info, err := k.arg(i)
		if err != nil {
			if isCode(err, native.CodeKernelArgInfoNotAvailable) {
				return nil, fmt.Errorf("opencl: kernel %s: %w", k.name, device.ErrArgInfoUnavailable)
			}
			return nil, fmt.Errorf("opencl: kernel %s arg %d: %w", k.name, i, err)
		}
		out[i] = info
	}
	return out, nil
}

func (k *Kernel) arg(i int) (device.ArgInfo, error) {
	typeName, err := k.k.ArgString(i, native.KernelArgTypeName)
	if err != nil {
		return device.ArgInfo{}, err
	}
	name, err := k.k.ArgString(i, native.KernelArgName)
	if err != nil {
		return device.ArgInfo{}, err
	}
	qualifier, err := k.k.ArgUint(i, native.KernelArgAddressQualifier)
	if err != nil {
		return device.ArgInfo{}, err
	}
	typeName = strings.TrimSpace(typeName)
	pointer := strings.HasSuffix(typeName, "*")
	return device.ArgInfo{
		Name:         name,
		TypeName:     strings.TrimSpace(strings.TrimSuffix(typeName, "*")),
		Pointer:      pointer,
		AddressSpace: addressSpace(qualifier),
	}, nil
}

func addressSpace(q uint32) device.AddressSpace {
	switch q {
	case native.KernelArgAddressGlobal:
		return device.AddressGlobal
	case native.KernelArgAddressConstant:
		return device.AddressConstant
	case native.KernelArgAddressLocal:
		return device.AddressLocal
	default:
		return device.AddressPrivate
	}
}

func (k *Kernel) SetArgBuffer(index int, b device.Buffer) error {
	buf, ok := b.(*Buffer)
	if !ok || buf.ctx != k.ctx {
		return fmt.Errorf("opencl: kernel %s arg %d: %w", k.name, index, device.ErrForeignObject)
	}
	if err := k.k.SetArgSVM(index, buf.mem); err != nil {
		return argErr(k.name, index, err)
	}
	k.bufs[index] = buf
	return nil
}

func (k *Kernel) SetArgBytes(index int, value []byte) error {
	if err := k.k.SetArgBytes(index, value); err != nil {
		return argErr(k.name, index, err)
	}
	delete(k.bufs, index)
	return nil
}

func (k *Kernel) Close() error {
	err := k.k.Release()
	k.k = native.Kernel{}
	return err
}

func argErr(kernel string, index int, err error) error {
	switch {
	case isCode(err, native.CodeInvalidArgIndex),
		isCode(err, native.CodeInvalidArgValue),
		isCode(err, native.CodeInvalidArgSize):
		return fmt.Errorf("opencl: kernel %s arg %d: %w: %w", kernel, index, device.ErrInvalidArg, err)
	default:
		return fmt.Errorf("opencl: kernel %s arg %d: %w", kernel, index, err)
	}
}

func isCode(err error, code int32) bool {
	var clErr *native.Error
	return errors.As(err, &clErr) && clErr.Code == code
}
