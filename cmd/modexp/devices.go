package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modexp/internal/backend"
	"github.com/samcharles93/modexp/internal/device"
)

type deviceEntry struct {
	Platform     int    `json:"platform"`
	Index        int    `json:"index"`
	GPUIndex     int    `json:"gpu_index"`
	Name         string `json:"name"`
	Vendor       string `json:"vendor"`
	Driver       string `json:"driver,omitempty"`
	Type         string `json:"type"`
	ComputeUnits int    `json:"compute_units"`
	MemoryMB     int    `json:"memory_mb"`
	Coherence    string `json:"coherence"`
}

type platformEntry struct {
	Index   int           `json:"index"`
	Name    string        `json:"name"`
	Vendor  string        `json:"vendor"`
	Version string        `json:"version"`
	Devices []deviceEntry `json:"devices"`
}

func devicesCmd() *cli.Command {
	var jsonOut bool
	return &cli.Command{
		Name:  "devices",
		Usage: "List the platforms and devices of a driver",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "driver",
				Usage:       "device driver (" + backend.Available() + ")",
				Value:       backend.Sim,
				Destination: &driverName,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON",
				Destination: &jsonOut,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			if cfg.Driver != "" && !c.IsSet("driver") {
				driverName = cfg.Driver
			}
			name, err := backend.Normalize(driverName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			drv, err := backend.Open(name)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			platforms, err := listPlatforms(drv)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(platforms)
			}
			return writeDevices(os.Stdout, name, platforms)
		},
	}
}

// listPlatforms enumerates every device. GPUIndex is the value --device
// takes to select it, or -1 for devices that are not GPUs.
func listPlatforms(drv device.Driver) ([]platformEntry, error) {
	platforms, err := drv.Platforms()
	if err != nil {
		return nil, err
	}
	out := make([]platformEntry, 0, len(platforms))
	for pi, p := range platforms {
		info := p.Info()
		entry := platformEntry{Index: pi, Name: info.Name, Vendor: info.Vendor, Version: info.Version}
		devices, err := p.Devices(device.TypeAll)
		if err != nil {
			return nil, fmt.Errorf("platform %d: %w", pi, err)
		}
		gpus := 0
		for _, d := range devices {
			di := d.Info()
			e := deviceEntry{
				Platform:     pi,
				Index:        len(entry.Devices),
				GPUIndex:     -1,
				Name:         di.Name,
				Vendor:       di.Vendor,
				Driver:       di.Driver,
				Type:         di.Type.String(),
				ComputeUnits: di.ComputeUnits,
				MemoryMB:     di.MemoryMB,
				Coherence:    coherenceOf(di).String(),
			}
			if di.Type&device.TypeGPU != 0 {
				e.GPUIndex = gpus
				gpus++
			}
			entry.Devices = append(entry.Devices, e)
		}
		out = append(out, entry)
	}
	return out, nil
}

func coherenceOf(info device.DeviceInfo) device.Coherence {
	if info.FineGrainedSVM {
		return device.FineGrained
	}
	return device.CoarseGrained
}

func writeDevices(w io.Writer, driver string, platforms []platformEntry) error {
	if len(platforms) == 0 {
		_, err := fmt.Fprintf(w, "no %s platforms found\n", driver)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range platforms {
		_, _ = fmt.Fprintf(tw, "platform %d: %s (%s, %s)\n", p.Index, p.Name, p.Vendor, p.Version)
		_, _ = fmt.Fprintln(tw, "  GPU\tNAME\tTYPE\tUNITS\tMEMORY\tSVM")
		for _, d := range p.Devices {
			gpu := "-"
			if d.GPUIndex >= 0 {
				gpu = fmt.Sprint(d.GPUIndex)
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%d MiB\t%s\n", gpu, d.Name, d.Type, d.ComputeUnits, d.MemoryMB, d.Coherence)
		}
	}
	return tw.Flush()
}
