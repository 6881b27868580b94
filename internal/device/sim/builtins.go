package sim

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/numeric"
)

// launch is one kernel execution request.
type launch struct {
	kernel string
	params []param
	args   []argValue
	global int
	units  int
}

// builtins maps entry point names to their host implementations.
var builtins = map[string]func(launch) error{
	"exp_device": runExpDevice,
}

// runExpDevice implements
//
//	exp_device(__global T *out, __global const T *in, T n, T q)
//
// with out[i] = in[i]^n mod q by repeated multiply and reduce, the loop
// counter running in T like the OpenCL kernel's.
func runExpDevice(l launch) error {
	if len(l.params) != 4 {
		return fmt.Errorf("sim: exp_device takes 4 args, kernel declares %d: %w", len(l.params), device.ErrInvalidArg)
	}
	elem := l.params[0].typeName
	for i, p := range l.params {
		wantPtr := i < 2
		if p.pointer != wantPtr || p.typeName != elem || (wantPtr && p.space != device.AddressGlobal) {
			return fmt.Errorf("sim: exp_device arg %d has an unexpected declaration: %w", i, device.ErrInvalidArg)
		}
	}

	out, in := l.args[0].buf.mem, l.args[1].buf.mem
	n, q := l.args[2].bytes, l.args[3].bytes
	switch elem {
	case "uchar":
		return expItems[uint8](out, in, n, q, l.global, l.units)
	case "char":
		return expItems[int8](out, in, n, q, l.global, l.units)
	case "ushort":
		return expItems[uint16](out, in, n, q, l.global, l.units)
	case "short":
		return expItems[int16](out, in, n, q, l.global, l.units)
	case "uint":
		return expItems[uint32](out, in, n, q, l.global, l.units)
	case "int":
		return expItems[int32](out, in, n, q, l.global, l.units)
	case "ulong":
		return expItems[uint64](out, in, n, q, l.global, l.units)
	case "long":
		return expItems[int64](out, in, n, q, l.global, l.units)
	default:
		return fmt.Errorf("sim: exp_device has no %s implementation: %w", elem, device.ErrInvalidArg)
	}
}

func expItems[T numeric.Number](outMem, inMem, nb, qb []byte, global, units int) error {
	out := numeric.FromBytes[T](outMem)
	in := numeric.FromBytes[T](inMem)
	if global > len(out) || global > len(in) {
		return fmt.Errorf("sim: global size %d exceeds buffer of %d elements: %w", global, min(len(out), len(in)), device.ErrInvalidSize)
	}
	n := numeric.FromBytes[T](nb)[0]
	q := numeric.FromBytes[T](qb)[0]

	if units < 1 {
		units = 1
	}
	chunk := (global + units - 1) / units

	var g errgroup.Group
	g.SetLimit(units)
	for start := 0; start < global; start += chunk {
		end := min(start+chunk, global)
		g.Go(func() (err error) {
			item := start
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("sim: work item %d faulted: %v", item, rec)
				}
			}()
			for ; item < end; item++ {
				e := in[item]
				f := T(1)
				for k := T(0); k < n; k++ {
					f = (f * e) % q
				}
				out[item] = f
			}
			return nil
		})
	}
	return g.Wait()
}
