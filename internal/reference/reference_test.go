package reference

import (
	"runtime"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func assertEqual[T comparable](t *testing.T, got, want []T) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestExpSmallPowers(t *testing.T) {
	t.Parallel()

	x := []uint32{1, 2, 3, 4, 5, 6}
	tests := []struct {
		n    uint64
		want []uint32
	}{
		{0, []uint32{1, 1, 1, 1, 1, 1}},
		{1, []uint32{1, 2, 3, 4, 5, 6}},
		{2, []uint32{1, 4, 9, 6, 5, 6}},
		{3, []uint32{1, 8, 7, 4, 5, 6}},
	}
	for _, tc := range tests {
		assertEqual(t, Exp(x, tc.n, 10), tc.want)
	}
}

func TestExpSquaresModTen(t *testing.T) {
	t.Parallel()
	x := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assertEqual(t, Exp(x, 2, 10), []uint32{0, 1, 4, 9, 6, 5, 6, 9, 4, 1})
}

func TestExpZeroExponentIsOne(t *testing.T) {
	t.Parallel()
	x := make([]int64, 1000)
	for i := range x {
		x[i] = int64(i*7919 - 3000)
	}
	for _, q := range []int64{10, 1, 2022, -7} {
		got := Exp(x, 0, q)
		for i, v := range got {
			if v != 1 {
				t.Fatalf("q=%d index %d: got %d want 1", q, i, v)
			}
		}
	}
}

func TestExpFirstPowerIsRemainder(t *testing.T) {
	t.Parallel()
	x := make([]int16, 777)
	for i := range x {
		x[i] = int16(i*37 - 9000)
	}
	got := Exp(x, 1, 13)
	for i, e := range x {
		if got[i] != e%13 {
			t.Fatalf("index %d: got %d want %d", i, got[i], e%13)
		}
	}
}

func TestExpMatchesSequentialForAnyWorkerCount(t *testing.T) {
	t.Parallel()
	x := make([]uint64, 5000)
	for i := range x {
		x[i] = uint64(i) * 2654435761
	}
	want := make([]uint64, len(x))
	for i, e := range x {
		want[i] = ExpModulo(e, 97, 2022)
	}
	for _, workers := range []int{1, 2, 3, runtime.NumCPU(), 64} {
		assertEqual(t, Exp(x, 97, 2022, WithWorkers(workers)), want)
	}
}

func TestExpWrapsLikeNativeArithmetic(t *testing.T) {
	t.Parallel()
	// 200*200 wraps in uint8 before the reduction.
	e := uint8(200)
	got := Exp([]uint8{e}, 2, 251)
	want := (e * e) % 251
	if got[0] != want {
		t.Fatalf("got %d want %d", got[0], want)
	}
}

func TestExpEmptyInput(t *testing.T) {
	t.Parallel()
	if got := Exp([]uint32{}, 5, 3); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestExpZeroModulus(t *testing.T) {
	t.Parallel()
	x := []uint32{0, 1, 2, 3}

	assertEqual(t, Exp(x, 0, 0), []uint32{1, 1, 1, 1})

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected a panic for zero modulus")
		}
		err, ok := rec.(runtime.Error)
		if !ok {
			t.Fatalf("expected runtime.Error, got %T: %v", rec, rec)
		}
		if !strings.Contains(err.Error(), "divide by zero") {
			t.Fatalf("unexpected panic: %v", err)
		}
	}()
	Exp(x, 1, 0)
}

func TestExpLargeExponent(t *testing.T) {
	t.Parallel()
	x := make([]uint32, 128)
	for i := range x {
		x[i] = uint32(i)
	}
	got := ExpCPU(x, 400000, 2022)
	for i, e := range x {
		if want := ExpModulo(e, 400000, 2022); got[i] != want {
			t.Fatalf("index %d: got %d want %d", i, got[i], want)
		}
	}
}
