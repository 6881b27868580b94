package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modexp/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:  "modexp",
		Usage: "Elementwise modular exponentiation on compute devices",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg := LoadConfig()
			applyLoggingConfig(cmd, cfg)
			log, err := newLogger()
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 2)
			}
			return logger.WithContext(ctx, log), nil
		},
		Commands: []*cli.Command{
			benchCmd(),
			verifyCmd(),
			devicesCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (logger.Logger, error) {
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return nil, err
	}
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	return logger.NewFormat(os.Stderr, format, level), nil
}
