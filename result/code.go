package result

import "fmt"

// Code is a native result code.
type Code int32

// Status codes.
const (
	Success                 Code = 0
	NotReady                Code = 1
	Timeout                 Code = 2
	EventSet                Code = 3
	EventReset              Code = 4
	Incomplete              Code = 5
	Suboptimal              Code = 1000001003
	ThreadIdle              Code = 1000268000
	ThreadDone              Code = 1000268001
	OperationDeferred       Code = 1000268002
	OperationNotDeferred    Code = 1000268003
	PipelineCompileRequired Code = 1000297000
)

var statusNames = map[Code]string{
	Success:                 "VK_SUCCESS",
	NotReady:                "VK_NOT_READY",
	Timeout:                 "VK_TIMEOUT",
	EventSet:                "VK_EVENT_SET",
	EventReset:              "VK_EVENT_RESET",
	Incomplete:              "VK_INCOMPLETE",
	Suboptimal:              "VK_SUBOPTIMAL_KHR",
	ThreadIdle:              "VK_THREAD_IDLE_KHR",
	ThreadDone:              "VK_THREAD_DONE_KHR",
	OperationDeferred:       "VK_OPERATION_DEFERRED_KHR",
	OperationNotDeferred:    "VK_OPERATION_NOT_DEFERRED_KHR",
	PipelineCompileRequired: "VK_PIPELINE_COMPILE_REQUIRED",
}

// IsError reports whether c denotes a failure.
func (c Code) IsError() bool { return c < 0 }

// IsStatus reports whether c is a known non-error status.
func (c Code) IsStatus() bool {
	_, ok := statusNames[c]
	return ok
}

func (c Code) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	if k := KindOf(c); k != KindUnknown {
		return k.String()
	}
	return fmt.Sprintf("VkResult(%d)", int32(c))
}

// Check splits a native result into a status and an error.
// Failures return a *Error; every non-negative code is returned as-is
// with a nil error, including statuses this package does not know.
func Check(c Code) (Code, error) {
	if c.IsError() {
		return c, FromCode(c)
	}
	return c, nil
}
