//go:build opencl

package backend

import (
	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/device/opencl"
)

func newOpenCL() (device.Driver, error) {
	return opencl.New()
}
