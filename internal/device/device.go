// Package device describes the compute devices kernels are dispatched to.
//
// The interfaces follow the OpenCL object model: a Driver exposes platforms,
// a platform exposes devices, and a Context created on one device owns the
// programs, kernels, queues and shared buffers used to run work on it.
// Concrete drivers live in sub-packages (sim, opencl). Objects must be
// closed before the context they were created from.
package device

import "time"

// DeviceType is a bit set of device classes, mirroring cl_device_type.
type DeviceType uint32

const (
	TypeCPU         DeviceType = 1 << 1
	TypeGPU         DeviceType = 1 << 2
	TypeAccelerator DeviceType = 1 << 3
	TypeAll         DeviceType = 0xFFFFFFFF
)

func (t DeviceType) String() string {
	switch t {
	case TypeCPU:
		return "cpu"
	case TypeGPU:
		return "gpu"
	case TypeAccelerator:
		return "accelerator"
	case TypeAll:
		return "all"
	default:
		return "mixed"
	}
}

// Coherence describes how host and device observe writes to shared memory.
type Coherence uint8

const (
	// CoarseGrained memory must be mapped before host access and unmapped
	// before the device may use it.
	CoarseGrained Coherence = iota
	// FineGrained memory is coherent without explicit mapping.
	FineGrained
)

func (c Coherence) String() string {
	if c == FineGrained {
		return "fine-grained"
	}
	return "coarse-grained"
}

// MapFlags selects the host access requested when mapping a buffer.
type MapFlags uint8

const (
	MapRead MapFlags = 1 << iota
	MapWrite
)

// QueueProperties is a bit set of command queue options.
type QueueProperties uint8

const (
	QueueProfiling QueueProperties = 1 << iota
)

// AddressSpace is the address space qualifier of a kernel argument.
type AddressSpace uint8

const (
	AddressPrivate AddressSpace = iota
	AddressGlobal
	AddressConstant
	AddressLocal
)

func (a AddressSpace) String() string {
	switch a {
	case AddressGlobal:
		return "global"
	case AddressConstant:
		return "constant"
	case AddressLocal:
		return "local"
	default:
		return "private"
	}
}

// PlatformInfo describes a platform.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
}

// DeviceInfo describes a device.
type DeviceInfo struct {
	Name         string
	Vendor       string
	Driver       string
	Type         DeviceType
	ComputeUnits int
	MemoryMB     int
	// FineGrainedSVM reports whether shared allocations are fine-grained.
	FineGrainedSVM bool
}

// ArgInfo describes one kernel parameter as declared in the source.
type ArgInfo struct {
	Name         string
	TypeName     string // element type for pointers, e.g. "uint" for "uint*"
	Pointer      bool
	AddressSpace AddressSpace
}

// Profile holds the device timestamps of a completed command, in
// nanoseconds on the device clock.
type Profile struct {
	Queued uint64
	Submit uint64
	Start  uint64
	End    uint64
}

// Duration is the execution time of the command on the device.
func (p Profile) Duration() time.Duration {
	if p.End < p.Start {
		return 0
	}
	return time.Duration(p.End - p.Start)
}

// Latency is the time from enqueue to completion.
func (p Profile) Latency() time.Duration {
	if p.End < p.Queued {
		return 0
	}
	return time.Duration(p.End - p.Queued)
}

// Driver enumerates the platforms of one compute API.
type Driver interface {
	Name() string
	Platforms() ([]Platform, error)
}

// Platform groups the devices of one vendor implementation.
type Platform interface {
	Info() PlatformInfo
	// Devices returns the devices matching kind. An empty result is not
	// an error.
	Devices(kind DeviceType) ([]Device, error)
}

// Device is a single compute device.
type Device interface {
	Info() DeviceInfo
	NewContext() (Context, error)
}

// Context is an execution context bound to one device.
type Context interface {
	Device() DeviceInfo
	// BuildProgram compiles source with the given compiler options.
	// Compilation failures wrap ErrBuild in a *BuildError carrying the
	// compiler log.
	BuildProgram(source, options string) (Program, error)
	NewQueue(props QueueProperties) (Queue, error)
	// AllocShared allocates size bytes of host/device shared memory.
	AllocShared(size int) (Buffer, error)
	Close() error
}

// Program is a compiled device program.
type Program interface {
	// Kernel resolves an entry point. Unknown names wrap ErrKernelNotFound.
	Kernel(name string) (Kernel, error)
	Close() error
}

// Kernel is a resolved entry point with its bound arguments.
type Kernel interface {
	Name() string
	NumArgs() (int, error)
	// Args describes every parameter. Drivers that cannot report types
	// return ErrArgInfoUnavailable.
	Args() ([]ArgInfo, error)
	SetArgBuffer(index int, b Buffer) error
	SetArgBytes(index int, value []byte) error
	Close() error
}

// Queue is an in-order command queue. Commands complete in submission
// order.
type Queue interface {
	// Map makes a coarse-grained buffer accessible to the host. It blocks
	// until the mapping is complete.
	Map(b Buffer, flags MapFlags) error
	// Unmap hands the buffer back to the device. The returned event
	// completes when host writes are visible to the device.
	Unmap(b Buffer) (Event, error)
	// EnqueueKernel runs k over a one-dimensional range of globalSize
	// work items.
	EnqueueKernel(k Kernel, globalSize int) (Event, error)
	Finish() error
	Close() error
}

// Event tracks the completion of an enqueued command.
type Event interface {
	Wait() error
	// Profile is available once the event has completed on a queue
	// created with QueueProfiling.
	Profile() (Profile, error)
	Close() error
}

// Buffer is a shared host/device memory region.
type Buffer interface {
	Size() int
	Coherence() Coherence
	// Host returns the host view of the buffer. Coarse-grained buffers
	// return ErrNotMapped unless mapped.
	Host() ([]byte, error)
	Close() error
}
