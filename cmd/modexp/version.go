package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/modexp/internal/backend"
	"github.com/samcharles93/modexp/internal/version"
)

func versionCmd() *cli.Command {
	var jsonOut bool
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON",
				Destination: &jsonOut,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			info := version.Resolve()
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Printf("modexp %s\n", info)
			fmt.Printf("  go:       %s\n", info.GoVersion)
			fmt.Printf("  platform: %s\n", info.Platform)
			fmt.Printf("  drivers:  %s\n", backend.Available())
			if info.BuildTime != "" {
				fmt.Printf("  built:    %s\n", info.BuildTime)
			}
			return nil
		},
	}
}
