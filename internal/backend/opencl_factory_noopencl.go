//go:build !opencl

package backend

import (
	"fmt"

	"github.com/samcharles93/modexp/internal/device"
)

func newOpenCL() (device.Driver, error) {
	return nil, fmt.Errorf("opencl driver is not available in this build (rebuild with -tags opencl): %w", device.ErrDriverUnavailable)
}
