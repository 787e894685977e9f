package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate enforces config invariants.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Transport.ReadPath) == "" {
		return fmt.Errorf("transport.read_path must not be empty")
	}
	if strings.TrimSpace(cfg.Transport.WritePath) == "" {
		return fmt.Errorf("transport.write_path must not be empty")
	}
	if cfg.Transport.DrainDelayMS < 0 {
		return fmt.Errorf("transport.drain_delay_ms must be >= 0")
	}
	if strings.TrimSpace(cfg.Shell.Binary) == "" {
		return fmt.Errorf("shell.binary must not be empty")
	}
	if strings.TrimSpace(cfg.Bootloader.Device) == "" {
		return fmt.Errorf("bootloader.device must not be empty")
	}
	if strings.TrimSpace(cfg.Identity.Path) == "" {
		return fmt.Errorf("identity.path must not be empty")
	}

	level := strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if _, ok := validLogLevels[level]; !ok {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	return nil
}
