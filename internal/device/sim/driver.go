// Package sim is a software device driver. It presents GPU-class devices
// whose kernels execute on the host CPU, so the dispatch path can run in
// builds and on machines without an OpenCL runtime.
//
// Program sources are preprocessed and parsed for their kernel signatures.
// Entry points are bound to built-in Go implementations by name. Shared
// buffers enforce the coherence protocol: host access to an unmapped
// coarse-grained buffer and device access to a mapped buffer both fail.
package sim

import (
	"fmt"
	"runtime"

	"github.com/samcharles93/modexp/internal/device"
)

// Name is the driver name used for selection.
const Name = "sim"

// Config describes the platforms and devices the driver exposes.
type Config struct {
	Platforms []PlatformConfig
	// Faults are injected into every context created by the driver.
	Faults map[Op]error
}

// PlatformConfig describes one simulated platform.
type PlatformConfig struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceConfig
}

// DeviceConfig describes one simulated device.
type DeviceConfig struct {
	Name      string
	Type      device.DeviceType
	Coherence device.Coherence
	// ComputeUnits bounds the goroutines executing work items. Zero
	// selects GOMAXPROCS.
	ComputeUnits int
	MemoryMB     int
}

// DefaultConfig returns one platform with one coarse-grained GPU.
func DefaultConfig() Config {
	return Config{
		Platforms: []PlatformConfig{{
			Name:    "modexp software platform",
			Vendor:  "modexp",
			Version: "OpenCL 2.0 sim",
			Devices: []DeviceConfig{{
				Name:      "sim-gpu0",
				Type:      device.TypeGPU,
				Coherence: device.CoarseGrained,
			}},
		}},
	}
}

// Driver is the software driver.
type Driver struct {
	cfg Config
}

// New returns a driver exposing cfg.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// NewDefault returns a driver exposing DefaultConfig.
func NewDefault() *Driver {
	return New(DefaultConfig())
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Platforms() ([]device.Platform, error) {
	out := make([]device.Platform, 0, len(d.cfg.Platforms))
	for _, pc := range d.cfg.Platforms {
		out = append(out, &platform{cfg: pc, faults: d.cfg.Faults})
	}
	return out, nil
}

type platform struct {
	cfg    PlatformConfig
	faults map[Op]error
}

func (p *platform) Info() device.PlatformInfo {
	return device.PlatformInfo{
		Name:    p.cfg.Name,
		Vendor:  p.cfg.Vendor,
		Version: p.cfg.Version,
	}
}

func (p *platform) Devices(kind device.DeviceType) ([]device.Device, error) {
	var out []device.Device
	for _, dc := range p.cfg.Devices {
		if dc.Type&kind == 0 {
			continue
		}
		out = append(out, &simDevice{cfg: dc, faults: p.faults})
	}
	return out, nil
}

type simDevice struct {
	cfg    DeviceConfig
	faults map[Op]error
}

func (d *simDevice) Info() device.DeviceInfo {
	units := d.cfg.ComputeUnits
	if units < 1 {
		units = runtime.GOMAXPROCS(0)
	}
	return device.DeviceInfo{
		Name:           d.cfg.Name,
		Vendor:         "modexp",
		Driver:         fmt.Sprintf("%s/%s", Name, runtime.Version()),
		Type:           d.cfg.Type,
		ComputeUnits:   units,
		MemoryMB:       d.cfg.MemoryMB,
		FineGrainedSVM: d.cfg.Coherence == device.FineGrained,
	}
}

func (d *simDevice) NewContext() (device.Context, error) {
	return newContext(d.Info(), d.cfg.Coherence, d.faults), nil
}
