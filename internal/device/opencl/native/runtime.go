//go:build opencl

package native

/*
#cgo LDFLAGS: -lOpenCL

// Minimal OpenCL 2.0 forward declarations to avoid requiring headers at compile time.
// Linker will still require libOpenCL when building with the opencl tag.
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

typedef int32_t cl_int;
typedef uint32_t cl_uint;
typedef uint64_t cl_ulong;
typedef cl_ulong cl_bitfield;
typedef cl_uint cl_bool;
typedef intptr_t cl_context_properties;
typedef cl_bitfield cl_queue_properties;

typedef struct _cl_platform_id* cl_platform_id;
typedef struct _cl_device_id* cl_device_id;
typedef struct _cl_context* cl_context;
typedef struct _cl_command_queue* cl_command_queue;
typedef struct _cl_program* cl_program;
typedef struct _cl_kernel* cl_kernel;
typedef struct _cl_event* cl_event;

extern cl_int clGetPlatformIDs(cl_uint num_entries, cl_platform_id* platforms, cl_uint* num_platforms);
extern cl_int clGetPlatformInfo(cl_platform_id platform, cl_uint param, size_t size, void* value, size_t* size_ret);
extern cl_int clGetDeviceIDs(cl_platform_id platform, cl_bitfield type, cl_uint num_entries, cl_device_id* devices, cl_uint* num_devices);
extern cl_int clGetDeviceInfo(cl_device_id device, cl_uint param, size_t size, void* value, size_t* size_ret);
extern cl_context clCreateContext(const cl_context_properties* props, cl_uint num_devices, const cl_device_id* devices, void* notify, void* user_data, cl_int* err);
extern cl_int clReleaseContext(cl_context ctx);
extern cl_command_queue clCreateCommandQueueWithProperties(cl_context ctx, cl_device_id device, const cl_queue_properties* props, cl_int* err);
extern cl_int clReleaseCommandQueue(cl_command_queue queue);
extern cl_int clFinish(cl_command_queue queue);
extern cl_program clCreateProgramWithSource(cl_context ctx, cl_uint count, const char** strings, const size_t* lengths, cl_int* err);
extern cl_int clBuildProgram(cl_program program, cl_uint num_devices, const cl_device_id* devices, const char* options, void* notify, void* user_data);
extern cl_int clGetProgramBuildInfo(cl_program program, cl_device_id device, cl_uint param, size_t size, void* value, size_t* size_ret);
extern cl_int clReleaseProgram(cl_program program);
extern cl_kernel clCreateKernel(cl_program program, const char* name, cl_int* err);
extern cl_int clGetKernelInfo(cl_kernel kernel, cl_uint param, size_t size, void* value, size_t* size_ret);
extern cl_int clGetKernelArgInfo(cl_kernel kernel, cl_uint index, cl_uint param, size_t size, void* value, size_t* size_ret);
extern cl_int clSetKernelArg(cl_kernel kernel, cl_uint index, size_t size, const void* value);
extern cl_int clSetKernelArgSVMPointer(cl_kernel kernel, cl_uint index, const void* ptr);
extern cl_int clReleaseKernel(cl_kernel kernel);
extern void* clSVMAlloc(cl_context ctx, cl_bitfield flags, size_t size, cl_uint alignment);
extern void clSVMFree(cl_context ctx, void* ptr);
extern cl_int clEnqueueSVMMap(cl_command_queue queue, cl_bool blocking, cl_bitfield flags, void* ptr, size_t size, cl_uint num_events, const cl_event* wait_list, cl_event* event);
extern cl_int clEnqueueSVMUnmap(cl_command_queue queue, void* ptr, cl_uint num_events, const cl_event* wait_list, cl_event* event);
extern cl_int clEnqueueNDRangeKernel(cl_command_queue queue, cl_kernel kernel, cl_uint dims, const size_t* offset, const size_t* global, const size_t* local, cl_uint num_events, const cl_event* wait_list, cl_event* event);
extern cl_int clWaitForEvents(cl_uint num_events, const cl_event* events);
extern cl_int clGetEventProfilingInfo(cl_event event, cl_uint param, size_t size, void* value, size_t* size_ret);
extern cl_int clReleaseEvent(cl_event event);

#define MODEXP_CL_QUEUE_PROPERTIES 0x1093

static cl_context modexpCreateContext(cl_device_id device, cl_int* err) {
	return clCreateContext(NULL, 1, &device, NULL, NULL, err);
}

static cl_command_queue modexpCreateQueue(cl_context ctx, cl_device_id device, cl_ulong props, cl_int* err) {
	cl_queue_properties list[3] = {MODEXP_CL_QUEUE_PROPERTIES, props, 0};
	return clCreateCommandQueueWithProperties(ctx, device, list, err);
}

static cl_program modexpCreateProgram(cl_context ctx, const char* src, size_t len, cl_int* err) {
	const char* sources[1] = {src};
	return clCreateProgramWithSource(ctx, 1, sources, &len, err);
}

static int modexpBuildProgram(cl_program program, cl_device_id device, const char* options) {
	return (int)clBuildProgram(program, 1, &device, options, NULL, NULL);
}

static int modexpEnqueue1D(cl_command_queue queue, cl_kernel kernel, size_t global, cl_event* event) {
	return (int)clEnqueueNDRangeKernel(queue, kernel, 1, NULL, &global, NULL, 0, NULL, event);
}

static int modexpMap(cl_command_queue queue, cl_ulong flags, void* ptr, size_t size) {
	return (int)clEnqueueSVMMap(queue, 1, flags, ptr, size, 0, NULL, NULL);
}

static int modexpUnmap(cl_command_queue queue, void* ptr, cl_event* event) {
	return (int)clEnqueueSVMUnmap(queue, ptr, 0, NULL, event);
}

static int modexpWait(cl_event event) {
	return (int)clWaitForEvents(1, &event);
}
*/
import "C"

import (
	"bytes"
	"fmt"
	"unsafe"
)

type Platform struct {
	id C.cl_platform_id
}

type Device struct {
	id C.cl_device_id
}

type Context struct {
	ptr C.cl_context
}

type Queue struct {
	ptr C.cl_command_queue
}

type Program struct {
	ptr C.cl_program
}

type Kernel struct {
	ptr C.cl_kernel
}

type Event struct {
	ptr C.cl_event
}

// SVM is a shared virtual memory allocation owned by a context.
type SVM struct {
	ctx  C.cl_context
	ptr  unsafe.Pointer
	size int
}

func Platforms() ([]Platform, error) {
	var count C.cl_uint
	code := C.clGetPlatformIDs(0, nil, &count)
	if code == CodePlatformNotFoundKHR || count == 0 {
		return nil, nil
	}
	if err := clErr(code); err != nil {
		return nil, err
	}
	ids := make([]C.cl_platform_id, count)
	if err := clErr(C.clGetPlatformIDs(count, &ids[0], nil)); err != nil {
		return nil, err
	}
	out := make([]Platform, len(ids))
	for i, id := range ids {
		out[i] = Platform{id: id}
	}
	return out, nil
}

func (p Platform) String(param uint32) (string, error) {
	var size C.size_t
	if err := clErr(C.clGetPlatformInfo(p.id, C.cl_uint(param), 0, nil, &size)); err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, size)
	if err := clErr(C.clGetPlatformInfo(p.id, C.cl_uint(param), size, unsafe.Pointer(&buf[0]), nil)); err != nil {
		return "", err
	}
	return cString(buf), nil
}

// Devices returns the platform's devices of the given type. A platform
// without matching devices yields an empty slice.
func (p Platform) Devices(kind uint64) ([]Device, error) {
	var count C.cl_uint
	code := C.clGetDeviceIDs(p.id, C.cl_bitfield(kind), 0, nil, &count)
	if code == CodeDeviceNotFound || count == 0 {
		return nil, nil
	}
	if err := clErr(code); err != nil {
		return nil, err
	}
	ids := make([]C.cl_device_id, count)
	if err := clErr(C.clGetDeviceIDs(p.id, C.cl_bitfield(kind), count, &ids[0], nil)); err != nil {
		return nil, err
	}
	out := make([]Device, len(ids))
	for i, id := range ids {
		out[i] = Device{id: id}
	}
	return out, nil
}

func (d Device) String(param uint32) (string, error) {
	var size C.size_t
	if err := clErr(C.clGetDeviceInfo(d.id, C.cl_uint(param), 0, nil, &size)); err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, size)
	if err := clErr(C.clGetDeviceInfo(d.id, C.cl_uint(param), size, unsafe.Pointer(&buf[0]), nil)); err != nil {
		return "", err
	}
	return cString(buf), nil
}

func (d Device) Uint(param uint32) (uint32, error) {
	var v C.cl_uint
	if err := clErr(C.clGetDeviceInfo(d.id, C.cl_uint(param), C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)); err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (d Device) Ulong(param uint32) (uint64, error) {
	var v C.cl_ulong
	if err := clErr(C.clGetDeviceInfo(d.id, C.cl_uint(param), C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)); err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func NewContext(d Device) (Context, error) {
	var code C.cl_int
	ctx := C.modexpCreateContext(d.id, &code)
	if err := clErr(code); err != nil {
		return Context{}, err
	}
	return Context{ptr: ctx}, nil
}

func (c Context) Release() error {
	if c.ptr == nil {
		return nil
	}
	return clErr(C.clReleaseContext(c.ptr))
}

func NewQueue(c Context, d Device, props uint64) (Queue, error) {
	var code C.cl_int
	q := C.modexpCreateQueue(c.ptr, d.id, C.cl_ulong(props), &code)
	if err := clErr(code); err != nil {
		return Queue{}, err
	}
	return Queue{ptr: q}, nil
}

func (q Queue) Finish() error {
	if q.ptr == nil {
		return nil
	}
	return clErr(C.clFinish(q.ptr))
}

func (q Queue) Release() error {
	if q.ptr == nil {
		return nil
	}
	return clErr(C.clReleaseCommandQueue(q.ptr))
}

// BuildProgram compiles source for d. The build log is returned whenever
// the compiler produced one, including on failure.
func BuildProgram(c Context, d Device, source, options string) (Program, string, error) {
	src := C.CString(source)
	defer C.free(unsafe.Pointer(src))
	opts := C.CString(options)
	defer C.free(unsafe.Pointer(opts))

	var code C.cl_int
	ptr := C.modexpCreateProgram(c.ptr, src, C.size_t(len(source)), &code)
	if err := clErr(code); err != nil {
		return Program{}, "", err
	}
	prog := Program{ptr: ptr}

	buildErr := clErr(C.cl_int(C.modexpBuildProgram(prog.ptr, d.id, opts)))
	log := prog.buildLog(d)
	if buildErr != nil {
		_ = prog.Release()
		return Program{}, log, buildErr
	}
	return prog, log, nil
}

func (p Program) buildLog(d Device) string {
	var size C.size_t
	if C.clGetProgramBuildInfo(p.ptr, d.id, ProgramBuildLog, 0, nil, &size) != 0 || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	if C.clGetProgramBuildInfo(p.ptr, d.id, ProgramBuildLog, size, unsafe.Pointer(&buf[0]), nil) != 0 {
		return ""
	}
	return cString(buf)
}

func (p Program) Release() error {
	if p.ptr == nil {
		return nil
	}
	return clErr(C.clReleaseProgram(p.ptr))
}

func CreateKernel(p Program, name string) (Kernel, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var code C.cl_int
	k := C.clCreateKernel(p.ptr, cname, &code)
	if err := clErr(code); err != nil {
		return Kernel{}, err
	}
	return Kernel{ptr: k}, nil
}

func (k Kernel) NumArgs() (int, error) {
	var n C.cl_uint
	if err := clErr(C.clGetKernelInfo(k.ptr, KernelNumArgs, C.size_t(unsafe.Sizeof(n)), unsafe.Pointer(&n), nil)); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ArgString queries a string-valued parameter of argument index. It fails
// with CodeKernelArgInfoNotAvailable unless the program was built with
// -cl-kernel-arg-info.
func (k Kernel) ArgString(index int, param uint32) (string, error) {
	var size C.size_t
	if err := clErr(C.clGetKernelArgInfo(k.ptr, C.cl_uint(index), C.cl_uint(param), 0, nil, &size)); err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, size)
	if err := clErr(C.clGetKernelArgInfo(k.ptr, C.cl_uint(index), C.cl_uint(param), size, unsafe.Pointer(&buf[0]), nil)); err != nil {
		return "", err
	}
	return cString(buf), nil
}

func (k Kernel) ArgUint(index int, param uint32) (uint32, error) {
	var v C.cl_uint
	if err := clErr(C.clGetKernelArgInfo(k.ptr, C.cl_uint(index), C.cl_uint(param), C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)); err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (k Kernel) SetArgSVM(index int, m SVM) error {
	return clErr(C.clSetKernelArgSVMPointer(k.ptr, C.cl_uint(index), m.ptr))
}

func (k Kernel) SetArgBytes(index int, value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("kernel arg %d: empty value", index)
	}
	return clErr(C.clSetKernelArg(k.ptr, C.cl_uint(index), C.size_t(len(value)), unsafe.Pointer(&value[0])))
}

func (k Kernel) Release() error {
	if k.ptr == nil {
		return nil
	}
	return clErr(C.clReleaseKernel(k.ptr))
}

func AllocSVM(c Context, flags uint64, size int) (SVM, error) {
	if size <= 0 {
		return SVM{}, fmt.Errorf("svm alloc size must be > 0")
	}
	ptr := C.clSVMAlloc(c.ptr, C.cl_bitfield(flags), C.size_t(size), 0)
	if ptr == nil {
		return SVM{}, fmt.Errorf("clSVMAlloc of %d bytes failed", size)
	}
	return SVM{ctx: c.ptr, ptr: ptr, size: size}, nil
}

// Bytes returns the host view of the allocation.
func (m SVM) Bytes() []byte {
	if m.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(m.ptr), m.size)
}

func (m SVM) Free() {
	if m.ptr == nil {
		return
	}
	C.clSVMFree(m.ctx, m.ptr)
}

// EnqueueSVMMap maps m for host access and blocks until the map completes.
func EnqueueSVMMap(q Queue, m SVM, flags uint64) error {
	return clErr(C.cl_int(C.modexpMap(q.ptr, C.cl_ulong(flags), m.ptr, C.size_t(m.size))))
}

func EnqueueSVMUnmap(q Queue, m SVM) (Event, error) {
	var ev C.cl_event
	if err := clErr(C.cl_int(C.modexpUnmap(q.ptr, m.ptr, &ev))); err != nil {
		return Event{}, err
	}
	return Event{ptr: ev}, nil
}

func EnqueueKernel(q Queue, k Kernel, global int) (Event, error) {
	var ev C.cl_event
	if err := clErr(C.cl_int(C.modexpEnqueue1D(q.ptr, k.ptr, C.size_t(global), &ev))); err != nil {
		return Event{}, err
	}
	return Event{ptr: ev}, nil
}

func (e Event) Wait() error {
	if e.ptr == nil {
		return nil
	}
	return clErr(C.cl_int(C.modexpWait(e.ptr)))
}

func (e Event) ProfilingInfo(param uint32) (uint64, error) {
	var v C.cl_ulong
	if err := clErr(C.clGetEventProfilingInfo(e.ptr, C.cl_uint(param), C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v), nil)); err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func (e Event) Release() error {
	if e.ptr == nil {
		return nil
	}
	return clErr(C.clReleaseEvent(e.ptr))
}

func cString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func clErr(code C.cl_int) error {
	if code == 0 {
		return nil
	}
	return &Error{Code: int32(code)}
}
