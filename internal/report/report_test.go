package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func sample() *Report {
	r := New(
		Device{Driver: "sim", Platform: "modexp software platform", Name: "sim-gpu0", Coherence: "coarse-grained"},
		Params{Type: "uint32", Elements: 10000, Exponent: "400000", Modulus: "2022", Input: "sequence", Kernel: "embedded", Warmup: 1},
	)
	r.Add(Run{CPU: 300 * time.Millisecond, Device: 100 * time.Millisecond, Kernel: 90 * time.Millisecond, Equal: true})
	r.Add(Run{CPU: 500 * time.Millisecond, Device: 300 * time.Millisecond, Kernel: 250 * time.Millisecond, Equal: true})
	return r
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "JSON": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q): got %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Fatal("expected error for csv")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	s := sample().Summary()
	if s.CPUMean != 400*time.Millisecond || s.DeviceMean != 200*time.Millisecond {
		t.Fatalf("means: %+v", s)
	}
	if s.KernelMean != 170*time.Millisecond {
		t.Fatalf("kernel mean: %v", s.KernelMean)
	}
	if s.Speedup != 2 {
		t.Fatalf("speedup: %v", s.Speedup)
	}
	if !s.Equal {
		t.Fatal("expected equal")
	}

	empty := New(Device{}, Params{}).Summary()
	if empty.Speedup != 0 || !empty.Equal {
		t.Fatalf("empty summary: %+v", empty)
	}
}

func TestRunsAreNumbered(t *testing.T) {
	t.Parallel()
	r := sample()
	if r.Runs[0].Index != 1 || r.Runs[1].Index != 2 {
		t.Fatalf("indices: %+v", r.Runs)
	}
	if r.ID == uuid.Nil {
		t.Fatal("report id not assigned")
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	r := sample()
	var buf bytes.Buffer
	if err := r.Write(&buf, FormatJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var doc struct {
		ID      string `json:"id"`
		Runs    []Run  `json:"runs"`
		Summary struct {
			Speedup float64 `json:"speedup"`
			Equal   bool    `json:"equal"`
		} `json:"summary"`
		Params Params `json:"params"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if doc.ID != r.ID.String() {
		t.Fatalf("id: %q", doc.ID)
	}
	if len(doc.Runs) != 2 || doc.Runs[1].CPU != 500*time.Millisecond {
		t.Fatalf("runs: %+v", doc.Runs)
	}
	if doc.Summary.Speedup != 2 || !doc.Summary.Equal {
		t.Fatalf("summary: %+v", doc.Summary)
	}
	if doc.Params.Modulus != "2022" {
		t.Fatalf("params: %+v", doc.Params)
	}
	if strings.Contains(buf.String(), `"mismatch"`) {
		t.Fatal("mismatch should be omitted when results agree")
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()
	r := sample()
	var buf bytes.Buffer
	if err := r.Write(&buf, FormatTable); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"sim-gpu0 (sim, coarse-grained)",
		"10000 x uint32 (sequence), n=400000, q=2022",
		"Speedup: 2.00x",
		"The results are equal",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTableMismatch(t *testing.T) {
	t.Parallel()
	r := sample()
	r.Mismatch = &Mismatch{Index: 7, Input: "7", CPU: "49", Device: "0"}
	var buf bytes.Buffer
	if err := r.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if !strings.Contains(buf.String(), "MISMATCH at element 7: input 7, cpu 49, device 0") {
		t.Fatalf("mismatch not reported:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "The results are equal") {
		t.Fatal("equal banner printed despite mismatch")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTablePropagatesErrors(t *testing.T) {
	t.Parallel()
	if err := sample().WriteTable(failingWriter{}); err == nil {
		t.Fatal("expected write error")
	}
}

func TestHostString(t *testing.T) {
	t.Parallel()
	h := Host{OS: "linux", Arch: "amd64", CPUs: 8, GOMAXPROCS: 4}
	if got := h.String(); got != "linux/amd64, 8 CPUs, GOMAXPROCS 4" {
		t.Fatalf("got %q", got)
	}
	h.Features = []string{"avx2", "fma"}
	if got := h.String(); !strings.HasSuffix(got, " [avx2 fma]") {
		t.Fatalf("got %q", got)
	}
	if CurrentHost().CPUs < 1 {
		t.Fatal("CurrentHost should count CPUs")
	}
}

func TestWriteTableKernelNote(t *testing.T) {
	t.Parallel()
	r := sample()
	r.Params.Kernel = "k.cl"
	r.Params.KernelNote = "signature checked only"
	var buf bytes.Buffer
	if err := r.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if !strings.Contains(buf.String(), "Kernel:   k.cl (signature checked only)") {
		t.Fatalf("kernel note missing:\n%s", buf.String())
	}
}
