package numeric

import (
	"testing"
	"unsafe"
)

func TestDeviceType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		got  string
		want string
	}{
		{DeviceType[uint8](), "uchar"},
		{DeviceType[int8](), "char"},
		{DeviceType[uint16](), "ushort"},
		{DeviceType[int16](), "short"},
		{DeviceType[uint32](), "uint"},
		{DeviceType[int32](), "int"},
		{DeviceType[uint64](), "ulong"},
		{DeviceType[int64](), "long"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("DeviceType: got %q want %q", tc.got, tc.want)
		}
	}

	if unsafe.Sizeof(uintptr(0)) == 8 && DeviceType[uintptr]() != "ulong" {
		t.Errorf("DeviceType[uintptr]: got %q", DeviceType[uintptr]())
	}
}

func TestDeviceWideType(t *testing.T) {
	t.Parallel()
	if got := DeviceWideType[int8](); got != "uint" {
		t.Fatalf("int8: %q", got)
	}
	if got := DeviceWideType[uint32](); got != "uint" {
		t.Fatalf("uint32: %q", got)
	}
	if got := DeviceWideType[int64](); got != "ulong" {
		t.Fatalf("int64: %q", got)
	}
}

func TestSigned(t *testing.T) {
	t.Parallel()
	if !Signed[int8]() || !Signed[int]() || !Signed[int64]() {
		t.Fatal("signed types reported unsigned")
	}
	if Signed[uint8]() || Signed[uint]() || Signed[uintptr]() {
		t.Fatal("unsigned types reported signed")
	}
}

func TestGoType(t *testing.T) {
	t.Parallel()
	if got := GoType[uint32](); got != "uint32" {
		t.Fatalf("GoType[uint32]: %q", got)
	}
	if got := GoType[int16](); got != "int16" {
		t.Fatalf("GoType[int16]: %q", got)
	}
}

func TestByteViews(t *testing.T) {
	t.Parallel()
	s := []uint32{1, 2, 3, 0xdeadbeef}
	b := AsBytes(s)
	if len(b) != 16 {
		t.Fatalf("AsBytes len: got %d want 16", len(b))
	}
	back := FromBytes[uint32](b)
	if len(back) != len(s) {
		t.Fatalf("FromBytes len: got %d want %d", len(back), len(s))
	}
	back[0] = 42
	if s[0] != 42 {
		t.Fatal("FromBytes should alias the original memory")
	}
	if FromBytes[uint64](make([]byte, 7)) != nil {
		t.Fatal("partial element should produce an empty view")
	}
	if AsBytes[int8](nil) != nil {
		t.Fatal("AsBytes(nil) should be nil")
	}
}

func TestScalarBytes(t *testing.T) {
	t.Parallel()
	b := ScalarBytes(uint16(0x0102))
	if len(b) != 2 {
		t.Fatalf("len: %d", len(b))
	}
	if FromBytes[uint16](b)[0] != 0x0102 {
		t.Fatalf("round trip mismatch: %v", b)
	}
	if One[int64]() != 1 || One[uint8]() != 1 {
		t.Fatal("One must be 1")
	}
}
