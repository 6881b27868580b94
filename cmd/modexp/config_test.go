package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "modexp", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestReadConfig(t *testing.T) {
	dir := writeConfig(t, `
driver: sim
platform: 1
device: 2
type: int64
cpu_workers: 3
elements: 64
exponent: 17
modulus: "0x101"
runs: 5
format: json
log_level: debug
`)
	cfg, err := readConfig(filepath.Join(dir, "modexp", "config.yaml"))
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}
	if cfg.Driver != "sim" || cfg.Type != "int64" || cfg.Format != "json" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected strings: %+v", cfg)
	}
	if cfg.Platform == nil || *cfg.Platform != 1 || cfg.Device == nil || *cfg.Device != 2 {
		t.Fatalf("unexpected indices: %+v", cfg)
	}
	if cfg.Exponent != "17" || cfg.Modulus != "0x101" {
		t.Fatalf("exponent/modulus: %q %q", cfg.Exponent, cfg.Modulus)
	}
	if cfg.Warmup != nil {
		t.Fatal("unset warmup should stay nil")
	}
}

func TestReadConfigInvalid(t *testing.T) {
	dir := writeConfig(t, "runs: [1, 2\n")
	if _, err := readConfig(filepath.Join(dir, "modexp", "config.yaml")); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if cfg := LoadConfig(); cfg.Driver != "" || cfg.Runs != nil {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestApplyBenchConfigFlagWins(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", writeConfig(t, "elements: 64\nexponent: \"9\"\nruns: 4\n"))

	p := defaultBenchParams()
	cmd := &cli.Command{
		Name:  "bench",
		Flags: append(problemFlags(&p), &cli.Int64Flag{Name: "runs", Value: p.runs, Destination: &p.runs}),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyBenchConfig(c, LoadConfig(), &p)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"bench", "--elements", "8"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.elements != 8 {
		t.Fatalf("flag should win over config: elements=%d", p.elements)
	}
	if p.exponent != "9" || p.runs != 4 {
		t.Fatalf("config should fill unset flags: exponent=%q runs=%d", p.exponent, p.runs)
	}
	if p.modulus != "" {
		t.Fatalf("unset modulus should keep the per-type default: %q", p.modulus)
	}
}

func TestKernelEnvWinsOverConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", writeConfig(t, "kernel: /from/config.cl\ndriver: sim\n"))
	t.Setenv("MODEXP_KERNEL", "/from/env.cl")
	t.Cleanup(func() { kernelPath, driverName = "", "" })

	cmd := &cli.Command{
		Name:  "verify",
		Flags: deviceFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyDeviceConfig(c, LoadConfig())
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"verify"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if kernelPath != "/from/env.cl" {
		t.Fatalf("kernel: got %q", kernelPath)
	}
}
