package config

// Default returns the canonical runtime configuration used when no file is
// present. The paths match the stock device image layout.
func Default() Config {
	return Config{
		Transport: TransportConfig{
			ReadPath:     "/dev/usb/ep_out",
			WritePath:    "/dev/usb/ep_in",
			DrainDelayMS: 500,
		},
		Shell:      ShellConfig{Binary: "sh"},
		Bootloader: BootloaderConfig{Device: "/dev/nflasha1"},
		Identity:   IdentityConfig{Path: "/etc/updatershell/identity"},
		Log:        LogConfig{Level: "info"},
	}
}
