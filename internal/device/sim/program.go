package sim

import (
	"fmt"

	"github.com/samcharles93/modexp/internal/device"
)

// Program is a compiled simulated program.
type Program struct {
	ctx    *Context
	unit   *unit
	closed bool
}

var _ device.Program = (*Program)(nil)

func (p *Program) Kernel(name string) (device.Kernel, error) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if p.closed {
		return nil, device.ErrClosed
	}
	if err := p.ctx.begin(OpCreateKernel, name); err != nil {
		return nil, err
	}
	decl, ok := p.unit.kernels[name]
	if !ok {
		return nil, fmt.Errorf("sim: %q: %w", name, device.ErrKernelNotFound)
	}
	p.ctx.stats.Kernels++
	return &Kernel{
		ctx:     p.ctx,
		decl:    decl,
		argInfo: p.unit.argInfo,
		args:    make([]argValue, len(decl.params)),
	}, nil
}

func (p *Program) Close() error {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.ctx.stats.Programs--
	return nil
}

type argValue struct {
	set   bool
	buf   *Buffer
	bytes []byte
}

// Kernel is a resolved simulated entry point.
type Kernel struct {
	ctx     *Context
	decl    *kernelDecl
	argInfo bool
	args    []argValue
	closed  bool
}

var _ device.Kernel = (*Kernel)(nil)

func (k *Kernel) Name() string {
	return k.decl.name
}

func (k *Kernel) NumArgs() (int, error) {
	return len(k.decl.params), nil
}

func (k *Kernel) Args() ([]device.ArgInfo, error) {
	if !k.argInfo {
		return nil, device.ErrArgInfoUnavailable
	}
	out := make([]device.ArgInfo, len(k.decl.params))
	for i, p := range k.decl.params {
		out[i] = device.ArgInfo{
			Name:         p.name,
			TypeName:     p.typeName,
			Pointer:      p.pointer,
			AddressSpace: p.space,
		}
	}
	return out, nil
}

func (k *Kernel) SetArgBuffer(index int, b device.Buffer) error {
	k.ctx.mu.Lock()
	defer k.ctx.mu.Unlock()
	if err := k.ctx.begin(OpSetArg, fmt.Sprintf("%d=buffer", index)); err != nil {
		return err
	}
	if err := k.checkIndex(index); err != nil {
		return err
	}
	sb, ok := b.(*Buffer)
	if !ok || sb.ctx != k.ctx {
		return fmt.Errorf("sim: arg %d: %w", index, device.ErrForeignObject)
	}
	if !k.decl.params[index].pointer {
		return fmt.Errorf("sim: arg %d is not a pointer: %w", index, device.ErrInvalidArg)
	}
	k.args[index] = argValue{set: true, buf: sb}
	return nil
}

func (k *Kernel) SetArgBytes(index int, value []byte) error {
	k.ctx.mu.Lock()
	defer k.ctx.mu.Unlock()
	if err := k.ctx.begin(OpSetArg, fmt.Sprintf("%d=%d bytes", index, len(value))); err != nil {
		return err
	}
	if err := k.checkIndex(index); err != nil {
		return err
	}
	p := k.decl.params[index]
	if p.pointer {
		return fmt.Errorf("sim: arg %d is a pointer: %w", index, device.ErrInvalidArg)
	}
	if want := scalarSize(p.typeName); want != 0 && want != len(value) {
		return fmt.Errorf("sim: arg %d (%s) takes %d bytes, got %d: %w", index, p.typeName, want, len(value), device.ErrInvalidArg)
	}
	k.args[index] = argValue{set: true, bytes: append([]byte(nil), value...)}
	return nil
}

func (k *Kernel) checkIndex(index int) error {
	if k.closed {
		return device.ErrClosed
	}
	if index < 0 || index >= len(k.args) {
		return fmt.Errorf("sim: kernel %s has %d args, index %d: %w", k.decl.name, len(k.args), index, device.ErrInvalidArg)
	}
	return nil
}

func (k *Kernel) Close() error {
	k.ctx.mu.Lock()
	defer k.ctx.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	k.args = nil
	k.ctx.stats.Kernels--
	return nil
}

func scalarSize(typeName string) int {
	switch typeName {
	case "char", "uchar", "bool":
		return 1
	case "short", "ushort", "half":
		return 2
	case "int", "uint", "float":
		return 4
	case "long", "ulong", "double", "size_t":
		return 8
	default:
		return 0
	}
}
