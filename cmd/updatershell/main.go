// Package main provides the updatershell device agent entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/equinoxel/Sony-PMCA-RE/internal/app"
	"github.com/equinoxel/Sony-PMCA-RE/internal/config"
	"github.com/equinoxel/Sony-PMCA-RE/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:    "updatershell",
		Usage:   "Serve the USB update shell command channel",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file path",
				Value:   "",
				EnvVars: []string{"UPDATERSHELL_CONFIG"},
			},
		},
		DefaultCommand: "run",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one command-channel session until the host exits",
				Action: func(c *cli.Context) error {
					return app.Run(c.Context, app.Options{
						ConfigPath: c.String("config"),
						Stderr:     os.Stderr,
					})
				},
			},
			{
				Name:  "check-config",
				Usage: "Load and validate the configuration, then exit",
				Action: func(c *cli.Context) error {
					loaded, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					for _, w := range loaded.Warnings {
						fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
					}
					fmt.Printf("config ok: %s\n", loaded.Path)
					return nil
				},
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
