//go:build opencl

package native

import (
	"encoding/binary"
	"testing"
)

const squareSource = `
__kernel void square(__global uint *out, __global const uint *in) {
	size_t i = get_global_id(0);
	out[i] = in[i] * in[i];
}
`

func firstGPU(t *testing.T) (Platform, Device) {
	t.Helper()
	platforms, err := Platforms()
	if err != nil {
		t.Fatalf("Platforms: %v", err)
	}
	for _, p := range platforms {
		devices, err := p.Devices(DeviceTypeGPU)
		if err != nil {
			t.Fatalf("Devices: %v", err)
		}
		if len(devices) > 0 {
			return p, devices[0]
		}
	}
	t.Skip("no opencl gpu available")
	return Platform{}, Device{}
}

func TestSVMKernelRoundTrip(t *testing.T) {
	_, dev := firstGPU(t)

	ctx, err := NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Release() }()

	queue, err := NewQueue(ctx, dev, QueueProfilingEnable)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer func() { _ = queue.Release() }()

	prog, log, err := BuildProgram(ctx, dev, squareSource, "-cl-std=CL2.0 -cl-kernel-arg-info")
	if err != nil {
		t.Fatalf("BuildProgram: %v\n%s", err, log)
	}
	defer func() { _ = prog.Release() }()

	kernel, err := CreateKernel(prog, "square")
	if err != nil {
		t.Fatalf("CreateKernel: %v", err)
	}
	defer func() { _ = kernel.Release() }()

	if n, err := kernel.NumArgs(); err != nil || n != 2 {
		t.Fatalf("NumArgs: %d, %v", n, err)
	}
	if space, err := kernel.ArgUint(0, KernelArgAddressQualifier); err != nil || space != KernelArgAddressGlobal {
		t.Fatalf("arg 0 address space: %#x, %v", space, err)
	}

	const n = 64
	in, err := AllocSVM(ctx, MemReadWrite, n*4)
	if err != nil {
		t.Fatalf("AllocSVM input: %v", err)
	}
	defer in.Free()
	out, err := AllocSVM(ctx, MemReadWrite, n*4)
	if err != nil {
		t.Fatalf("AllocSVM output: %v", err)
	}
	defer out.Free()

	if err := EnqueueSVMMap(queue, in, MapWrite); err != nil {
		t.Fatalf("map input: %v", err)
	}
	host := in.Bytes()
	for i := range n {
		binary.LittleEndian.PutUint32(host[i*4:], uint32(i))
	}
	unmapAndWait(t, queue, in)

	if err := kernel.SetArgSVM(0, out); err != nil {
		t.Fatalf("SetArgSVM out: %v", err)
	}
	if err := kernel.SetArgSVM(1, in); err != nil {
		t.Fatalf("SetArgSVM in: %v", err)
	}
	ev, err := EnqueueKernel(queue, kernel, n)
	if err != nil {
		t.Fatalf("EnqueueKernel: %v", err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	start, _ := ev.ProfilingInfo(ProfilingCommandStart)
	end, _ := ev.ProfilingInfo(ProfilingCommandEnd)
	if end < start {
		t.Fatalf("profile end %d before start %d", end, start)
	}
	_ = ev.Release()

	if err := EnqueueSVMMap(queue, out, MapRead); err != nil {
		t.Fatalf("map output: %v", err)
	}
	res := out.Bytes()
	for i := range n {
		if got := binary.LittleEndian.Uint32(res[i*4:]); got != uint32(i*i) {
			t.Fatalf("out[%d]: got %d want %d", i, got, i*i)
		}
	}
	unmapAndWait(t, queue, out)
}

func TestBuildFailureReturnsLog(t *testing.T) {
	_, dev := firstGPU(t)
	ctx, err := NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Release() }()

	_, log, err := BuildProgram(ctx, dev, "__kernel void broken(__global uint *out) { out[0] = ; }", "")
	if err == nil {
		t.Fatal("expected build failure")
	}
	if clErr, ok := err.(*Error); !ok || clErr.Code != CodeBuildProgramFailure {
		t.Fatalf("unexpected error: %v", err)
	}
	if log == "" {
		t.Fatal("expected a build log")
	}
}

func unmapAndWait(t *testing.T, q Queue, m SVM) {
	t.Helper()
	ev, err := EnqueueSVMUnmap(q, m)
	if err != nil {
		t.Fatalf("unmap: %v", err)
	}
	defer func() { _ = ev.Release() }()
	if err := ev.Wait(); err != nil {
		t.Fatalf("wait unmap: %v", err)
	}
}
