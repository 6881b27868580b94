package report

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

type Host struct {
	Hostname   string   `json:"hostname,omitempty"`
	OS         string   `json:"os"`
	Arch       string   `json:"arch"`
	CPUs       int      `json:"cpus"`
	GOMAXPROCS int      `json:"gomaxprocs"`
	Features   []string `json:"cpu_features,omitempty"`
}

// CurrentHost describes the machine the process runs on.
func CurrentHost() Host {
	name, _ := os.Hostname()
	return Host{
		Hostname:   name,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CPUs:       runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		Features:   cpuFeatures(),
	}
}

func (h Host) String() string {
	s := fmt.Sprintf("%s/%s, %d CPUs, GOMAXPROCS %d", h.OS, h.Arch, h.CPUs, h.GOMAXPROCS)
	if len(h.Features) > 0 {
		s += " [" + strings.Join(h.Features, " ") + "]"
	}
	return s
}

// cpuFeatures lists the vector and wide-multiply extensions that bear on
// CPU reference throughput.
func cpuFeatures() []string {
	var out []string
	add := func(name string, ok bool) {
		if ok {
			out = append(out, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add("sse4.2", cpu.X86.HasSSE42)
		add("avx", cpu.X86.HasAVX)
		add("avx2", cpu.X86.HasAVX2)
		add("fma", cpu.X86.HasFMA)
		add("bmi2", cpu.X86.HasBMI2)
		add("avx512f", cpu.X86.HasAVX512F)
	case "arm64":
		add("asimd", cpu.ARM64.HasASIMD)
		add("atomics", cpu.ARM64.HasATOMICS)
		add("sve", cpu.ARM64.HasSVE)
	}
	return out
}
