// Package report records benchmark runs comparing the CPU reference with a
// device engine and renders them as a table or JSON.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samcharles93/modexp/internal/version"
)

// Format selects the report rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --format value. The empty string selects
// FormatTable.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (expected table or json)", s)
	}
}

type Device struct {
	Driver       string `json:"driver"`
	Platform     string `json:"platform"`
	Name         string `json:"name"`
	Vendor       string `json:"vendor,omitempty"`
	Coherence    string `json:"coherence"`
	ComputeUnits int    `json:"compute_units,omitempty"`
}

// Params are the inputs of a benchmark.
type Params struct {
	Type       string `json:"type"`
	Elements   int    `json:"elements"`
	Exponent   string `json:"exponent"`
	Modulus    string `json:"modulus"`
	Input      string `json:"input"`
	Kernel     string `json:"kernel"`
	// KernelNote qualifies how the kernel source was used, e.g. when the
	// driver only checks its signature.
	KernelNote string `json:"kernel_note,omitempty"`
	CPUWorkers int    `json:"cpu_workers"`
	Warmup     int    `json:"warmup"`
}

// Run is one timed CPU and device computation over the same input.
type Run struct {
	Index  int           `json:"index"`
	CPU    time.Duration `json:"cpu_ns"`
	Device time.Duration `json:"device_ns"`
	// Kernel is the device-side execution time, zero when the driver
	// does not profile.
	Kernel time.Duration `json:"kernel_ns,omitempty"`
	Equal  bool          `json:"equal"`
}

// Mismatch is the first element where the two paths disagree.
type Mismatch struct {
	Index  int    `json:"index"`
	Input  string `json:"input"`
	CPU    string `json:"cpu"`
	Device string `json:"device"`
}

type Summary struct {
	CPUMean    time.Duration `json:"cpu_mean_ns"`
	DeviceMean time.Duration `json:"device_mean_ns"`
	KernelMean time.Duration `json:"kernel_mean_ns,omitempty"`
	Speedup    float64       `json:"speedup"`
	Equal      bool          `json:"equal"`
}

type Report struct {
	ID       uuid.UUID    `json:"id"`
	Started  time.Time    `json:"started"`
	Version  version.Info `json:"version"`
	Host     Host         `json:"host"`
	Device   Device       `json:"device"`
	Params   Params       `json:"params"`
	Runs     []Run        `json:"runs"`
	Mismatch *Mismatch    `json:"mismatch,omitempty"`
}

// New starts a report for one benchmark invocation.
func New(dev Device, params Params) *Report {
	return &Report{
		ID:      uuid.New(),
		Started: time.Now().UTC(),
		Version: version.Resolve(),
		Host:    CurrentHost(),
		Device:  dev,
		Params:  params,
	}
}

// Add appends a run, numbering it from 1.
func (r *Report) Add(run Run) {
	run.Index = len(r.Runs) + 1
	r.Runs = append(r.Runs, run)
}

// Summary aggregates the recorded runs. Speedup is CPU mean over device
// mean, zero when no device time was recorded.
func (r *Report) Summary() Summary {
	s := Summary{Equal: r.Mismatch == nil}
	if len(r.Runs) == 0 {
		return s
	}
	var cpu, dev, kernel time.Duration
	for _, run := range r.Runs {
		cpu += run.CPU
		dev += run.Device
		kernel += run.Kernel
		s.Equal = s.Equal && run.Equal
	}
	n := time.Duration(len(r.Runs))
	s.CPUMean = cpu / n
	s.DeviceMean = dev / n
	s.KernelMean = kernel / n
	if s.DeviceMean > 0 {
		s.Speedup = float64(s.CPUMean) / float64(s.DeviceMean)
	}
	return s
}

// Write renders the report in format f.
func (r *Report) Write(w io.Writer, f Format) error {
	if f == FormatJSON {
		return r.WriteJSON(w)
	}
	return r.WriteTable(w)
}

// WriteJSON writes the report with its summary as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	doc := struct {
		*Report
		Summary Summary `json:"summary"`
	}{r, r.Summary()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteTable writes a human-readable report.
func (r *Report) WriteTable(w io.Writer) error {
	p := &printer{w: w}
	p.printf("=== modexp benchmark %s ===\n", r.ID)
	p.printf("Device:   %s (%s, %s)\n", r.Device.Name, r.Device.Driver, r.Device.Coherence)
	p.printf("Platform: %s\n", r.Device.Platform)
	p.printf("Host:     %s\n", r.Host)
	p.printf("Input:    %d x %s (%s), n=%s, q=%s\n", r.Params.Elements, r.Params.Type, r.Params.Input, r.Params.Exponent, r.Params.Modulus)
	if r.Params.KernelNote != "" {
		p.printf("Kernel:   %s (%s)\n", r.Params.Kernel, r.Params.KernelNote)
	} else {
		p.printf("Kernel:   %s\n", r.Params.Kernel)
	}
	p.printf("Warmup:   %d runs\n", r.Params.Warmup)
	p.printf("\n")

	p.printf("%-6s %12s %12s %12s %8s\n", "Run", "CPU", "Device", "Kernel", "Equal")
	for _, run := range r.Runs {
		p.printf("%-6d %12s %12s %12s %8t\n", run.Index, round(run.CPU), round(run.Device), kernelCell(run.Kernel), run.Equal)
	}

	s := r.Summary()
	p.printf("\n%-6s %12s %12s %12s\n", "Avg", round(s.CPUMean), round(s.DeviceMean), kernelCell(s.KernelMean))
	p.printf("Speedup: %.2fx\n", s.Speedup)
	if r.Mismatch != nil {
		p.printf("MISMATCH at element %d: input %s, cpu %s, device %s\n",
			r.Mismatch.Index, r.Mismatch.Input, r.Mismatch.CPU, r.Mismatch.Device)
	} else if s.Equal {
		p.printf("The results are equal\n")
	}
	return p.err
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}

func kernelCell(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return round(d).String()
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
