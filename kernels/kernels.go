// Package kernels embeds the device programs shipped with modexp.
package kernels

import _ "embed"

// ExpDevice is the source of the exp_device kernel. It is instantiated for
// an element type with -D ELEMENT_TYPE=<type> -D ELEMENT_WTYPE=<type>.
//
//go:embed exp_device.cl
var ExpDevice string

// ExpDeviceFile is the name ExpDevice is shipped under.
const ExpDeviceFile = "exp_device.cl"
