// Package config resolves, parses, validates, and defaults the update
// shell configuration.
package config

import "time"

// Config is the fully materialized runtime configuration.
type Config struct {
	Transport  TransportConfig  `yaml:"transport"`
	Shell      ShellConfig      `yaml:"shell"`
	Bootloader BootloaderConfig `yaml:"bootloader"`
	Identity   IdentityConfig   `yaml:"identity"`
	Log        LogConfig        `yaml:"log"`
}

// TransportConfig locates the gadget endpoint device files backing the
// command channel and controls session teardown.
type TransportConfig struct {
	ReadPath  string `yaml:"read_path"`
	WritePath string `yaml:"write_path"`

	// DrainDelayMS is how long to wait after the loop exits before the
	// channel is closed, letting final bytes flush to the host.
	DrainDelayMS int `yaml:"drain_delay_ms"`
}

// ShellConfig selects the binary used for SHEL and EXEC.
type ShellConfig struct {
	Binary string `yaml:"binary"`
}

// BootloaderConfig locates the boot flash partition served by BLDR.
type BootloaderConfig struct {
	Device string `yaml:"device"`
}

// IdentityConfig locates the device identity file served by INFO.
type IdentityConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Warning is a non-fatal finding surfaced during load.
type Warning struct {
	Message string
}

// DrainDelay returns the configured teardown delay as a duration.
func (c Config) DrainDelay() time.Duration {
	return time.Duration(c.Transport.DrainDelayMS) * time.Millisecond
}
