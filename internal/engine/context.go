// Package engine dispatches elementwise modular exponentiation to a compute
// device through shared host/device buffers.
//
// A run creates one device.Context with DefineContext, then one Engine per
// element type and length. Compute may be called any number of times on an
// Engine; its buffers are reused between calls.
package engine

import (
	"github.com/samcharles93/modexp/internal/device"
)

// Selection picks a platform and device by index. The zero value selects
// the first GPU of the first platform.
type Selection struct {
	Platform int
	Device   int
	// Type filters the devices considered. Zero means device.TypeGPU.
	Type device.DeviceType
}

// DefineContext creates a context on the first GPU-class device of the
// first platform. There is no fallback when no such device exists.
func DefineContext(drv device.Driver) (device.Context, error) {
	return DefineContextAt(drv, Selection{})
}

// DefineContextAt creates a context on the selected device.
func DefineContextAt(drv device.Driver, sel Selection) (device.Context, error) {
	platforms, err := drv.Platforms()
	if err != nil {
		return nil, newError(KindNoPlatform, err, "%s driver", drv.Name())
	}
	if len(platforms) == 0 {
		return nil, newError(KindNoPlatform, nil, "%s driver reports no platforms", drv.Name())
	}
	if sel.Platform < 0 || sel.Platform >= len(platforms) {
		return nil, newError(KindNoPlatform, nil, "platform %d out of range (have %d)", sel.Platform, len(platforms))
	}
	platform := platforms[sel.Platform]

	kind := sel.Type
	if kind == 0 {
		kind = device.TypeGPU
	}
	devices, err := platform.Devices(kind)
	if err != nil {
		return nil, newError(KindNoDevice, err, "platform %q", platform.Info().Name)
	}
	if len(devices) == 0 {
		return nil, newError(KindNoDevice, nil, "platform %q has no %s devices", platform.Info().Name, kind)
	}
	if sel.Device < 0 || sel.Device >= len(devices) {
		return nil, newError(KindNoDevice, nil, "device %d out of range (platform %q has %d)", sel.Device, platform.Info().Name, len(devices))
	}

	ctx, err := devices[sel.Device].NewContext()
	if err != nil {
		return nil, newError(KindDevice, err, "create context")
	}
	return ctx, nil
}
