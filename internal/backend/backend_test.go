package backend

import (
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/modexp/internal/device"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", Sim},
		{"sim", Sim},
		{"  SIM ", Sim},
		{"OpenCL", OpenCL},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q): got %q want %q", tc.in, got, tc.want)
		}
	}

	if _, err := Normalize("auto"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenSim(t *testing.T) {
	t.Parallel()
	drv, err := Open("sim")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if drv.Name() != Sim {
		t.Fatalf("driver name: %q", drv.Name())
	}
	platforms, err := drv.Platforms()
	if err != nil || len(platforms) == 0 {
		t.Fatalf("Platforms: %v (%d)", err, len(platforms))
	}
}

func TestAvailable(t *testing.T) {
	t.Parallel()
	avail := Available()
	if !strings.HasPrefix(avail, Sim) {
		t.Fatalf("Available: %q", avail)
	}
	if !Has(Sim) {
		t.Fatal("sim driver must always be present")
	}
	if Has("cuda") {
		t.Fatal("unexpected driver reported")
	}
}

func TestOpenOpenCLMatchesBuild(t *testing.T) {
	t.Parallel()
	_, err := Open(OpenCL)
	if Has(OpenCL) {
		if err != nil && !errors.Is(err, device.ErrDriverUnavailable) {
			t.Fatalf("Open(opencl): %v", err)
		}
		return
	}
	if !errors.Is(err, device.ErrDriverUnavailable) {
		t.Fatalf("expected ErrDriverUnavailable, got %v", err)
	}
}
