// Package numeric defines the scalar types eligible for modular
// exponentiation and the layout contract they share with device kernels.
package numeric

import (
	"fmt"
	"unsafe"
)

// Number is the set of fixed-width integers both the CPU reference and the
// device kernels operate on. Arithmetic uses Go's native multiplication and
// remainder, including wraparound on overflow.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint | ~uintptr
}

// One returns the multiplicative identity of T.
func One[T Number]() T {
	return 1
}

// Size returns the width of T in bytes.
func Size[T Number]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Signed reports whether T is a signed type.
func Signed[T Number]() bool {
	var zero T
	return zero-1 < zero
}

// DeviceType returns the OpenCL C scalar type with the same size and
// signedness as T. Kernel sources are instantiated with this name.
func DeviceType[T Number]() string {
	name, err := deviceTypeName(Size[T](), Signed[T]())
	if err != nil {
		panic(err)
	}
	return name
}

// DeviceWideType returns the unsigned OpenCL C type kernels form products
// of T in: at least 32 bits, so narrow operands are not promoted to a
// signed int that could overflow.
func DeviceWideType[T Number]() string {
	if Size[T]() > 4 {
		return "ulong"
	}
	return "uint"
}

func deviceTypeName(size int, signed bool) (string, error) {
	var name string
	switch size {
	case 1:
		name = "char"
	case 2:
		name = "short"
	case 4:
		name = "int"
	case 8:
		name = "long"
	default:
		return "", fmt.Errorf("numeric: no device type for %d-byte integers", size)
	}
	if !signed {
		name = "u" + name
	}
	return name, nil
}

// GoType returns the Go name of the builtin type with T's layout.
func GoType[T Number]() string {
	bits := Size[T]() * 8
	if Signed[T]() {
		return fmt.Sprintf("int%d", bits)
	}
	return fmt.Sprintf("uint%d", bits)
}

// AsBytes reinterprets s as its underlying bytes without copying.
func AsBytes[T Number](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*Size[T]())
}

// FromBytes reinterprets b as a slice of T without copying. Trailing bytes
// that do not form a whole element are ignored. b must be aligned for T,
// which holds for all device allocations.
func FromBytes[T Number](b []byte) []T {
	n := len(b) / Size[T]()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// ScalarBytes returns the in-memory representation of v, suitable for
// binding as a by-value kernel argument.
func ScalarBytes[T Number](v T) []byte {
	out := make([]byte, Size[T]())
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&v)), len(out)))
	return out
}
