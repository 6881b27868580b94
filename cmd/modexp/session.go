package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/samcharles93/modexp/internal/backend"
	"github.com/samcharles93/modexp/internal/device"
	"github.com/samcharles93/modexp/internal/engine"
	"github.com/samcharles93/modexp/internal/logger"
	"github.com/samcharles93/modexp/internal/numeric"
	"github.com/samcharles93/modexp/internal/report"
	"github.com/samcharles93/modexp/kernels"
)

// session is the device context of one command invocation.
type session struct {
	driver   string
	ctx      device.Context
	platform device.PlatformInfo
	log      logger.Logger
}

func openSession(log logger.Logger) (*session, error) {
	name, err := backend.Normalize(driverName)
	if err != nil {
		return nil, err
	}
	drv, err := backend.Open(name)
	if err != nil {
		return nil, err
	}
	sel := engine.Selection{Platform: int(platformIdx), Device: int(deviceIdx)}
	ctx, err := engine.DefineContextAt(drv, sel)
	if err != nil {
		return nil, err
	}

	s := &session{driver: name, ctx: ctx, log: log}
	if platforms, err := drv.Platforms(); err == nil && sel.Platform < len(platforms) {
		s.platform = platforms[sel.Platform].Info()
	}
	info := ctx.Device()
	log.Info("device selected", "driver", name, "platform", s.platform.Name, "device", info.Name, "fine_grained", info.FineGrainedSVM)
	return s, nil
}

func (s *session) Close() error {
	return s.ctx.Close()
}

func (s *session) device(coherence device.Coherence) report.Device {
	info := s.ctx.Device()
	return report.Device{
		Driver:       s.driver,
		Platform:     s.platform.Name,
		Name:         info.Name,
		Vendor:       info.Vendor,
		Coherence:    coherence.String(),
		ComputeUnits: info.ComputeUnits,
	}
}

// kernelLabel names the kernel source for reports.
func kernelLabel() string {
	if kernelPath == "" {
		return "built-in " + kernels.ExpDeviceFile
	}
	return kernelPath
}

// simKernelNote marks results of a custom kernel on the sim driver, which
// compiles the source and checks its signature but runs its own exp_device.
const simKernelNote = "sim driver: signature checked, built-in exp_device executed"

// kernelNote qualifies kernelLabel, empty when the kernel source runs as
// written.
func (s *session) kernelNote() string {
	if kernelPath != "" && s.driver == backend.Sim {
		return simKernelNote
	}
	return ""
}

func newEngine[T numeric.Number](s *session, elements int) (*engine.Engine[T], error) {
	opts := []engine.Option{engine.WithLogger(s.log)}
	if kernelPath == "" {
		return engine.NewFromSource[T](s.ctx, kernels.ExpDevice, elements, opts...)
	}
	if note := s.kernelNote(); note != "" {
		s.log.Warn("kernel body is not executed", "kernel", kernelPath, "note", note)
	}
	return engine.New[T](s.ctx, kernelPath, elements, opts...)
}

// printBuildLog writes the compiler log of a failed build verbatim.
func printBuildLog(w io.Writer, err error) {
	var ee *engine.Error
	if errors.As(err, &ee) {
		if log := ee.BuildLog(); log != "" {
			_, _ = fmt.Fprintln(w, log)
		}
	}
}
