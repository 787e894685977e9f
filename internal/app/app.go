// Package app wires configuration, logging, and collaborators into one
// update shell session.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/equinoxel/Sony-PMCA-RE/internal/bootloader"
	"github.com/equinoxel/Sony-PMCA-RE/internal/config"
	"github.com/equinoxel/Sony-PMCA-RE/internal/deviceinfo"
	"github.com/equinoxel/Sony-PMCA-RE/internal/logging"
	"github.com/equinoxel/Sony-PMCA-RE/internal/process"
	"github.com/equinoxel/Sony-PMCA-RE/internal/shell"
	"github.com/equinoxel/Sony-PMCA-RE/internal/transport"
)

// Options carries entrypoint inputs into the runner.
type Options struct {
	ConfigPath string
	Stderr     io.Writer
}

// Run executes one full command-channel session: open the channel, serve
// requests until EXIT or channel failure, then drain and close.
func Run(ctx context.Context, opts Options) error {
	loaded, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	logRuntime := logging.New(logging.ParseLevel(cfg.Log.Level))
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	for _, w := range loaded.Warnings {
		fmt.Fprintf(opts.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("session start",
		"config", loaded.Path,
		"read_path", cfg.Transport.ReadPath,
		"write_path", cfg.Transport.WritePath,
	)

	channel, err := transport.Open(cfg.Transport.ReadPath, cfg.Transport.WritePath)
	if err != nil {
		logger.Error("open command channel failed", "error", err.Error())
		return err
	}

	sh := shell.New(
		channel,
		shell.SpawnerFunc(func(argv []string, pipeStdin bool) (shell.Process, error) {
			return process.Spawn(argv, pipeStdin)
		}),
		deviceinfo.NewFileProvider(cfg.Identity.Path),
		shell.ImageOpenerFunc(func() (shell.BootImage, error) {
			return bootloader.Open(cfg.Bootloader.Device)
		}),
		shell.Options{ShellBinary: cfg.Shell.Binary, Logger: logger},
	)

	runErr := sh.Run(ctx)

	// Let any final response bytes flush before tearing the channel down.
	time.Sleep(cfg.DrainDelay())
	if err := channel.Close(); err != nil {
		logger.Warn("close command channel", "error", err.Error())
	}

	if runErr != nil && ctx.Err() == nil {
		logger.Error("session failed", "error", runErr.Error())
		return runErr
	}
	logger.Info("session end")
	return nil
}
