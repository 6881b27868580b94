//go:build opencl

// Package opencl implements the device interfaces on an OpenCL 2.0 runtime
// using shared virtual memory. Devices reporting fine-grained SVM buffers
// get fine-grained allocations; all others are coarse-grained and follow
// the map/unmap protocol.
package opencl

import (
	"fmt"
	"strings"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/device/opencl/native"
)

// Name is the driver name used for selection.
const Name = "opencl"

// Driver enumerates the platforms of the installed OpenCL runtime.
type Driver struct{}

var _ device.Driver = (*Driver)(nil)

// New probes the OpenCL runtime. A runtime that cannot enumerate
// platforms is reported as unavailable.
func New() (*Driver, error) {
	if _, err := native.Platforms(); err != nil {
		return nil, fmt.Errorf("opencl: %w: %w", device.ErrDriverUnavailable, err)
	}
	return &Driver{}, nil
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Platforms() ([]device.Platform, error) {
	ps, err := native.Platforms()
	if err != nil {
		return nil, fmt.Errorf("opencl: enumerate platforms: %w", err)
	}
	out := make([]device.Platform, 0, len(ps))
	for _, p := range ps {
		out = append(out, platform{p: p})
	}
	return out, nil
}

type platform struct {
	p native.Platform
}

func (p platform) Info() device.PlatformInfo {
	name, _ := p.p.String(native.PlatformName)
	vendor, _ := p.p.String(native.PlatformVendor)
	version, _ := p.p.String(native.PlatformVersion)
	return device.PlatformInfo{
		Name:    strings.TrimSpace(name),
		Vendor:  strings.TrimSpace(vendor),
		Version: strings.TrimSpace(version),
	}
}

func (p platform) Devices(kind device.DeviceType) ([]device.Device, error) {
	ds, err := p.p.Devices(uint64(kind))
	if err != nil {
		return nil, fmt.Errorf("opencl: enumerate devices: %w", err)
	}
	out := make([]device.Device, 0, len(ds))
	for _, d := range ds {
		out = append(out, clDevice{d: d})
	}
	return out, nil
}

type clDevice struct {
	d native.Device
}

func (d clDevice) Info() device.DeviceInfo {
	name, _ := d.d.String(native.DeviceName)
	vendor, _ := d.d.String(native.DeviceVendor)
	driver, _ := d.d.String(native.DriverVersion)
	kind, _ := d.d.Ulong(native.DeviceType)
	units, _ := d.d.Uint(native.DeviceMaxComputeUnits)
	mem, _ := d.d.Ulong(native.DeviceGlobalMemSize)
	svm, _ := d.d.Ulong(native.DeviceSVMCapabilities)
	return device.DeviceInfo{
		Name:           strings.TrimSpace(name),
		Vendor:         strings.TrimSpace(vendor),
		Driver:         strings.TrimSpace(driver),
		Type:           device.DeviceType(kind),
		ComputeUnits:   int(units),
		MemoryMB:       int(mem >> 20),
		FineGrainedSVM: svm&native.DeviceSVMFineGrainBuffer != 0,
	}
}

func (d clDevice) NewContext() (device.Context, error) {
	info := d.Info()
	ctx, err := native.NewContext(d.d)
	if err != nil {
		return nil, fmt.Errorf("opencl: create context on %s: %w", info.Name, err)
	}
	return &Context{ctx: ctx, dev: d.d, info: info}, nil
}
