// Package backend resolves device drivers by name.
package backend

import (
	"fmt"
	"strings"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/device/sim"
)

const (
	Sim    = "sim"
	OpenCL = "opencl"
)

// Normalize canonicalises a driver name. The empty name selects the
// software driver.
func Normalize(name string) (string, error) {
	driver := strings.ToLower(strings.TrimSpace(name))
	if driver == "" {
		return Sim, nil
	}
	switch driver {
	case Sim, OpenCL:
		return driver, nil
	default:
		return "", fmt.Errorf("unknown driver %q (expected %s)", driver, Available())
	}
}

// Open returns the named driver. Drivers not compiled into this build
// return an error wrapping device.ErrDriverUnavailable.
func Open(name string) (device.Driver, error) {
	driver, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	switch driver {
	case OpenCL:
		return newOpenCL()
	default:
		return sim.NewDefault(), nil
	}
}
