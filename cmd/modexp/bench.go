package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modexp/internal/logger"
	"github.com/samcharles93/modexp/internal/numeric"
	"github.com/samcharles93/modexp/internal/reference"
	"github.com/samcharles93/modexp/internal/report"
)

// benchParams are the problem and timing settings of bench and verify.
type benchParams struct {
	elements int64
	exponent string
	modulus  string
	input    string
	seed     int64
	runs     int64
	warmup   int64
	format   string
}

func defaultBenchParams() benchParams {
	return benchParams{
		elements: 10000,
		exponent: "",
		modulus:  "",
		input:    inputSequence,
		runs:     1,
		format:   string(report.FormatTable),
	}
}

func problemFlags(p *benchParams) []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "elements",
			Aliases:     []string{"m"},
			Usage:       "number of input elements",
			Value:       p.elements,
			Destination: &p.elements,
		},
		&cli.StringFlag{
			Name:        "exponent",
			Aliases:     []string{"n"},
			Usage:       "exponent, parsed as the element type (default 400000, capped at the type's maximum)",
			Value:       p.exponent,
			Destination: &p.exponent,
		},
		&cli.StringFlag{
			Name:        "modulus",
			Aliases:     []string{"q"},
			Usage:       "modulus, parsed as the element type (default 2022, capped at the type's maximum)",
			Value:       p.modulus,
			Destination: &p.modulus,
		},
		&cli.StringFlag{
			Name:        "input",
			Usage:       "input values (sequence, random)",
			Value:       p.input,
			Destination: &p.input,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "seed for --input=random",
			Destination: &p.seed,
		},
	}
}

func benchCmd() *cli.Command {
	p := defaultBenchParams()

	flags := append(deviceFlags(), computeFlags()...)
	flags = append(flags, problemFlags(&p)...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "timed runs",
			Value:       p.runs,
			Destination: &p.runs,
		},
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "untimed device runs before timing",
			Destination: &p.warmup,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "report format (table, json)",
			Value:       p.format,
			Destination: &p.format,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time the device against the CPU reference and compare results",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyDeviceConfig(c, cfg)
			applyBenchConfig(c, cfg, &p)

			if p.runs < 1 {
				return cli.Exit("error: --runs must be at least 1", 1)
			}
			if p.warmup < 0 {
				return cli.Exit("error: --warmup must be non-negative", 1)
			}
			if _, err := report.ParseFormat(p.format); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			var err error
			switch elemType {
			case "uint8":
				err = runBench[uint8](ctx, p)
			case "int8":
				err = runBench[int8](ctx, p)
			case "uint16":
				err = runBench[uint16](ctx, p)
			case "int16":
				err = runBench[int16](ctx, p)
			case "uint32":
				err = runBench[uint32](ctx, p)
			case "int32":
				err = runBench[int32](ctx, p)
			case "uint64":
				err = runBench[uint64](ctx, p)
			case "int64":
				err = runBench[int64](ctx, p)
			default:
				err = unknownType(elemType)
			}
			return exitErr(err)
		},
	}
}

// errMismatch reports that the device disagreed with the CPU reference.
var errMismatch = cli.Exit("error: device results differ from the CPU reference", 1)

// exitErr converts a command error into a cli exit error.
func exitErr(err error) error {
	if err == nil || err == errMismatch {
		return err
	}
	printBuildLog(os.Stderr, err)
	return cli.Exit(fmt.Sprintf("error: %v", err), 1)
}

func runBench[T numeric.Number](ctx context.Context, p benchParams) error {
	log := logger.FromContext(ctx)
	format, err := report.ParseFormat(p.format)
	if err != nil {
		return err
	}
	prob, err := newProblem[T](p.elements, p.exponent, p.modulus, p.input, uint64(p.seed))
	if err != nil {
		return err
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	eng, err := newEngine[T](s, len(prob.x))
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	rep := report.New(s.device(eng.Coherence()), report.Params{
		Type:       numeric.GoType[T](),
		Elements:   len(prob.x),
		Exponent:   fmt.Sprint(prob.n),
		Modulus:    fmt.Sprint(prob.q),
		Input:      p.input,
		Kernel:     kernelLabel(),
		KernelNote: s.kernelNote(),
		CPUWorkers: int(cpuWorkers),
		Warmup:     int(p.warmup),
	})

	for i := range p.warmup {
		if _, err := eng.Compute(prob.x, prob.n, prob.q); err != nil {
			return fmt.Errorf("warmup %d: %w", i+1, err)
		}
	}

	for i := range p.runs {
		start := time.Now()
		want := reference.Exp(prob.x, prob.exponent(), prob.q, reference.WithWorkers(int(cpuWorkers)))
		cpu := time.Since(start)

		start = time.Now()
		got, err := eng.Compute(prob.x, prob.n, prob.q)
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		dev := time.Since(start)

		run := report.Run{CPU: cpu, Device: dev, Equal: true}
		if prof, ok := eng.LastProfile(); ok {
			run.Kernel = prof.Duration()
		}
		if idx := firstMismatch(want, got); idx >= 0 {
			run.Equal = false
			if rep.Mismatch == nil {
				rep.Mismatch = &report.Mismatch{
					Index:  idx,
					Input:  fmt.Sprint(prob.x[idx]),
					CPU:    fmt.Sprint(want[idx]),
					Device: fmt.Sprint(got[idx]),
				}
			}
		}
		log.Debug("run complete", "run", i+1, "cpu", cpu, "device", dev, "equal", run.Equal)
		rep.Add(run)
	}

	if err := rep.Write(os.Stdout, format); err != nil {
		return err
	}
	if rep.Mismatch != nil {
		return errMismatch
	}
	return nil
}
