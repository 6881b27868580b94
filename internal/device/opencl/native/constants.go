// Package native is a thin cgo binding to the OpenCL 2.0 runtime. Only the
// calls needed for shared-memory kernel dispatch are bound.
package native

// Device types.
const (
	DeviceTypeCPU         = 1 << 1
	DeviceTypeGPU         = 1 << 2
	DeviceTypeAccelerator = 1 << 3
	DeviceTypeAll         = 0xFFFFFFFF
)

// Platform info.
const (
	PlatformVersion = 0x0901
	PlatformName    = 0x0902
	PlatformVendor  = 0x0903
)

// Device info.
const (
	DeviceType            = 0x1000
	DeviceMaxComputeUnits = 0x1002
	DeviceGlobalMemSize   = 0x101F
	DeviceName            = 0x102B
	DeviceVendor          = 0x102C
	DriverVersion         = 0x102D
	DeviceSVMCapabilities = 0x1053
)

// SVM capabilities and allocation flags.
const (
	DeviceSVMCoarseGrainBuffer = 1 << 0
	DeviceSVMFineGrainBuffer   = 1 << 1

	MemReadWrite          = 1 << 0
	MemSVMFineGrainBuffer = 1 << 10
)

// Map flags.
const (
	MapRead  = 1 << 0
	MapWrite = 1 << 1
)

const QueueProfilingEnable = 1 << 1

const ProgramBuildLog = 0x1183

// Kernel and kernel argument info.
const (
	KernelNumArgs = 0x1191

	KernelArgAddressQualifier = 0x1196
	KernelArgTypeName         = 0x1199
	KernelArgName             = 0x119A

	KernelArgAddressGlobal   = 0x119B
	KernelArgAddressLocal    = 0x119C
	KernelArgAddressConstant = 0x119D
	KernelArgAddressPrivate  = 0x119E
)

// Event profiling info.
const (
	ProfilingCommandQueued = 0x1280
	ProfilingCommandSubmit = 0x1281
	ProfilingCommandStart  = 0x1282
	ProfilingCommandEnd    = 0x1283
)
