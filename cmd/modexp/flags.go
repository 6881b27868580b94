package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modexp/internal/backend"
)

var (
	driverName  string
	platformIdx int64
	deviceIdx   int64
	kernelPath  string
	elemType    string
	cpuWorkers  int64
	logLevel    string
	logFormat   string
	debug       bool
)

func deviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "driver",
			Usage:       "device driver (" + backend.Available() + ")",
			Value:       backend.Sim,
			Destination: &driverName,
		},
		&cli.Int64Flag{
			Name:        "platform",
			Usage:       "platform index",
			Destination: &platformIdx,
		},
		&cli.Int64Flag{
			Name:        "device",
			Usage:       "GPU index within the platform",
			Destination: &deviceIdx,
		},
		&cli.StringFlag{
			Name:        "kernel",
			Aliases:     []string{"k"},
			Usage:       "path to the kernel source (default: built-in exp_device.cl)",
			Sources:     cli.EnvVars("MODEXP_KERNEL"),
			Destination: &kernelPath,
		},
	}
}

func computeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "element type (" + typeNames() + ")",
			Value:       "uint32",
			Destination: &elemType,
		},
		&cli.Int64Flag{
			Name:        "cpu-workers",
			Usage:       "CPU reference workers (0 = GOMAXPROCS)",
			Destination: &cpuWorkers,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
