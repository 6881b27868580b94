package native

import "fmt"

// Error codes the drivers branch on.
const (
	CodeDeviceNotFound            = -1
	CodeProfilingInfoNotAvailable = -7
	CodeBuildProgramFailure       = -11
	CodeKernelArgInfoNotAvailable = -19
	CodeInvalidBuildOptions       = -43
	CodeInvalidKernelName         = -46
	CodeInvalidArgIndex           = -49
	CodeInvalidArgValue           = -50
	CodeInvalidArgSize            = -51
	CodeInvalidKernelArgs         = -52
	CodeInvalidGlobalWorkSize     = -63
	CodePlatformNotFoundKHR       = -1001
)

var codeNames = map[int32]string{
	0:     "CL_SUCCESS",
	-1:    "CL_DEVICE_NOT_FOUND",
	-2:    "CL_DEVICE_NOT_AVAILABLE",
	-3:    "CL_COMPILER_NOT_AVAILABLE",
	-4:    "CL_MEM_OBJECT_ALLOCATION_FAILURE",
	-5:    "CL_OUT_OF_RESOURCES",
	-6:    "CL_OUT_OF_HOST_MEMORY",
	-7:    "CL_PROFILING_INFO_NOT_AVAILABLE",
	-11:   "CL_BUILD_PROGRAM_FAILURE",
	-14:   "CL_EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST",
	-19:   "CL_KERNEL_ARG_INFO_NOT_AVAILABLE",
	-30:   "CL_INVALID_VALUE",
	-32:   "CL_INVALID_PLATFORM",
	-33:   "CL_INVALID_DEVICE",
	-34:   "CL_INVALID_CONTEXT",
	-35:   "CL_INVALID_QUEUE_PROPERTIES",
	-36:   "CL_INVALID_COMMAND_QUEUE",
	-38:   "CL_INVALID_MEM_OBJECT",
	-43:   "CL_INVALID_BUILD_OPTIONS",
	-44:   "CL_INVALID_PROGRAM",
	-45:   "CL_INVALID_PROGRAM_EXECUTABLE",
	-46:   "CL_INVALID_KERNEL_NAME",
	-48:   "CL_INVALID_KERNEL",
	-49:   "CL_INVALID_ARG_INDEX",
	-50:   "CL_INVALID_ARG_VALUE",
	-51:   "CL_INVALID_ARG_SIZE",
	-52:   "CL_INVALID_KERNEL_ARGS",
	-54:   "CL_INVALID_WORK_GROUP_SIZE",
	-58:   "CL_INVALID_EVENT",
	-59:   "CL_INVALID_OPERATION",
	-63:   "CL_INVALID_GLOBAL_WORK_SIZE",
	-1001: "CL_PLATFORM_NOT_FOUND_KHR",
}

// Error is a non-success OpenCL status code.
type Error struct {
	Code int32
}

func (e *Error) Error() string {
	return fmt.Sprintf("opencl error %d (%s)", e.Code, CodeName(e.Code))
}

// CodeName returns the symbolic name of an OpenCL status code.
func CodeName(code int32) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return "CL_UNKNOWN_ERROR"
}
