//go:build opencl

package opencl

import (
	"errors"
	"testing"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/numeric"
	"github.com/samcharles93/modexp/kernels"
)

func gpuContext(t *testing.T) device.Context {
	t.Helper()
	drv, err := New()
	if err != nil {
		t.Skipf("opencl runtime unavailable: %v", err)
	}
	platforms, err := drv.Platforms()
	if err != nil {
		t.Fatalf("Platforms: %v", err)
	}
	for _, p := range platforms {
		devices, err := p.Devices(device.TypeGPU)
		if err != nil {
			t.Fatalf("Devices: %v", err)
		}
		if len(devices) == 0 {
			continue
		}
		ctx, err := devices[0].NewContext()
		if err != nil {
			t.Fatalf("NewContext: %v", err)
		}
		t.Cleanup(func() { _ = ctx.Close() })
		return ctx
	}
	t.Skip("no opencl gpu available")
	return nil
}

func TestShippedKernelArgInfo(t *testing.T) {
	ctx := gpuContext(t)
	prog, err := ctx.BuildProgram(kernels.ExpDevice, "-cl-std=CL2.0 -cl-kernel-arg-info -D ELEMENT_TYPE=uint -D ELEMENT_WTYPE=uint")
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	defer func() { _ = prog.Close() }()

	k, err := prog.Kernel("exp_device")
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}
	defer func() { _ = k.Close() }()

	args, err := k.Args()
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	if len(args) != 4 {
		t.Fatalf("got %d args", len(args))
	}
	for i, a := range args {
		if a.TypeName != "uint" {
			t.Fatalf("arg %d type %q", i, a.TypeName)
		}
		if (i < 2) != a.Pointer {
			t.Fatalf("arg %d pointer=%v", i, a.Pointer)
		}
	}
	if args[0].AddressSpace != device.AddressGlobal {
		t.Fatalf("arg 0 address space %v", args[0].AddressSpace)
	}

	if _, err := prog.Kernel("missing"); !errors.Is(err, device.ErrKernelNotFound) {
		t.Fatalf("expected ErrKernelNotFound, got %v", err)
	}
}

func TestBuildErrorCarriesLog(t *testing.T) {
	ctx := gpuContext(t)
	_, err := ctx.BuildProgram("__kernel void exp_device(__global uint *out) { out[0] = ; }", "-cl-std=CL2.0")
	var be *device.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected *device.BuildError, got %v", err)
	}
	if be.Log == "" {
		t.Fatal("empty build log")
	}
}

func TestMapProtocol(t *testing.T) {
	ctx := gpuContext(t)
	q, err := ctx.NewQueue(device.QueueProfiling)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer func() { _ = q.Close() }()

	buf, err := ctx.AllocShared(16)
	if err != nil {
		t.Fatalf("AllocShared: %v", err)
	}
	defer func() { _ = buf.Close() }()

	h := device.NewBufferHandle(q, buf)
	if err := h.WithWrite(func(host []byte) error {
		copy(host, numeric.AsBytes([]uint32{1, 2, 3, 4}))
		return nil
	}); err != nil {
		t.Fatalf("WithWrite: %v", err)
	}
	if err := h.WithRead(func(host []byte) error {
		if got := numeric.FromBytes[uint32](host)[3]; got != 4 {
			t.Fatalf("read back %d", got)
		}
		return nil
	}); err != nil {
		t.Fatalf("WithRead: %v", err)
	}

	if buf.Coherence() == device.CoarseGrained {
		if _, err := buf.Host(); !errors.Is(err, device.ErrNotMapped) {
			t.Fatalf("expected ErrNotMapped, got %v", err)
		}
	}
}
