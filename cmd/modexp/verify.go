package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modexp/internal/logger"
	"github.com/samcharles93/modexp/internal/numeric"
	"github.com/samcharles93/modexp/internal/reference"
)

func verifyCmd() *cli.Command {
	p := defaultBenchParams()

	flags := append(deviceFlags(), computeFlags()...)
	flags = append(flags, problemFlags(&p)...)

	return &cli.Command{
		Name:  "verify",
		Usage: "Run the device once and check it against the CPU reference",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyDeviceConfig(c, cfg)
			applyBenchConfig(c, cfg, &p)

			var err error
			switch elemType {
			case "uint8":
				err = runVerify[uint8](ctx, p)
			case "int8":
				err = runVerify[int8](ctx, p)
			case "uint16":
				err = runVerify[uint16](ctx, p)
			case "int16":
				err = runVerify[int16](ctx, p)
			case "uint32":
				err = runVerify[uint32](ctx, p)
			case "int32":
				err = runVerify[int32](ctx, p)
			case "uint64":
				err = runVerify[uint64](ctx, p)
			case "int64":
				err = runVerify[int64](ctx, p)
			default:
				err = unknownType(elemType)
			}
			return exitErr(err)
		},
	}
}

func runVerify[T numeric.Number](ctx context.Context, p benchParams) error {
	log := logger.FromContext(ctx)
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

	got, err := eng.Compute(prob.x, prob.n, prob.q)
	if err != nil {
		return err
	}
	want := reference.Exp(prob.x, prob.exponent(), prob.q, reference.WithWorkers(int(cpuWorkers)))

	if idx := firstMismatch(want, got); idx >= 0 {
		_, _ = fmt.Fprintf(os.Stdout, "MISMATCH at element %d: %v^%v mod %v: cpu=%v device=%v\n",
			idx, prob.x[idx], prob.n, prob.q, want[idx], got[idx])
		return errMismatch
	}
	_, _ = fmt.Fprintf(os.Stdout, "ok: %d %s elements agree (n=%v, q=%v, %s)\n",
		len(got), numeric.GoType[T](), prob.n, prob.q, eng.Coherence())
	if note := s.kernelNote(); note != "" {
		_, _ = fmt.Fprintf(os.Stdout, "note: %s; %s was not executed\n", note, kernelPath)
	}
	return nil
}
