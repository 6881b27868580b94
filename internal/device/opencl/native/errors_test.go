package native

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorNames(t *testing.T) {
	t.Parallel()

	err := error(&Error{Code: CodeBuildProgramFailure})
	if !strings.Contains(err.Error(), "CL_BUILD_PROGRAM_FAILURE") {
		t.Fatalf("unexpected message: %v", err)
	}

	var clErr *Error
	if !errors.As(err, &clErr) || clErr.Code != -11 {
		t.Fatalf("errors.As: %v", err)
	}

	if got := CodeName(-9999); got != "CL_UNKNOWN_ERROR" {
		t.Fatalf("unknown code: %q", got)
	}
	if got := CodeName(CodePlatformNotFoundKHR); got != "CL_PLATFORM_NOT_FOUND_KHR" {
		t.Fatalf("khr code: %q", got)
	}
}
