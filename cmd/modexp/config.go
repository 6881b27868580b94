package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the modexp configuration file
// ($XDG_CONFIG_HOME/modexp/config.yaml). Pointer fields distinguish "not
// set" from zero values.
type Config struct {
	Driver   string `yaml:"driver"`
	Platform *int64 `yaml:"platform"`
	Device   *int64 `yaml:"device"`
	Kernel   string `yaml:"kernel"`

	Type       string `yaml:"type"`
	CPUWorkers *int64 `yaml:"cpu_workers"`

	// Benchmark defaults
	Elements *int64 `yaml:"elements"`
	Exponent string `yaml:"exponent"`
	Modulus  string `yaml:"modulus"`
	Input    string `yaml:"input"`
	Runs     *int64 `yaml:"runs"`
	Warmup   *int64 `yaml:"warmup"`
	Format   string `yaml:"format"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "modexp", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or cannot be parsed.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	cfg, err := readConfig(path)
	if err != nil {
		return Config{}
	}
	return cfg
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags
// when they were not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyDeviceConfig applies config file defaults to the device and compute
// flags. The kernel flag also reads MODEXP_KERNEL, which therefore wins
// over the file.
func applyDeviceConfig(c *cli.Command, cfg Config) {
	if cfg.Driver != "" && !c.IsSet("driver") {
		driverName = cfg.Driver
	}
	if cfg.Platform != nil && !c.IsSet("platform") {
		platformIdx = *cfg.Platform
	}
	if cfg.Device != nil && !c.IsSet("device") {
		deviceIdx = *cfg.Device
	}
	if cfg.Kernel != "" && !c.IsSet("kernel") {
		kernelPath = cfg.Kernel
	}
	if cfg.Type != "" && !c.IsSet("type") {
		elemType = cfg.Type
	}
	if cfg.CPUWorkers != nil && !c.IsSet("cpu-workers") {
		cpuWorkers = *cfg.CPUWorkers
	}
}

// applyBenchConfig applies config file defaults to bench flags.
func applyBenchConfig(c *cli.Command, cfg Config, p *benchParams) {
	if cfg.Elements != nil && !c.IsSet("elements") {
		p.elements = *cfg.Elements
	}
	if cfg.Exponent != "" && !c.IsSet("exponent") {
		p.exponent = cfg.Exponent
	}
	if cfg.Modulus != "" && !c.IsSet("modulus") {
		p.modulus = cfg.Modulus
	}
	if cfg.Input != "" && !c.IsSet("input") {
		p.input = cfg.Input
	}
	if cfg.Runs != nil && !c.IsSet("runs") {
		p.runs = *cfg.Runs
	}
	if cfg.Warmup != nil && !c.IsSet("warmup") {
		p.warmup = *cfg.Warmup
	}
	if cfg.Format != "" && !c.IsSet("format") {
		p.format = cfg.Format
	}
}
