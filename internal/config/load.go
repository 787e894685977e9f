package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the device image installs the agent configuration.
const DefaultPath = "/etc/updatershell/config.yaml"

// Loaded captures resolved config path, parsed values, and non-fatal
// warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// ResolvePath applies CLI/environment fallback rules for the config
// location.
func ResolvePath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if env := strings.TrimSpace(os.Getenv("UPDATERSHELL_CONFIG")); env != "" {
		return env
	}
	return DefaultPath
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A missing file is not an error: device images commonly ship without one
// and run on defaults.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath := ResolvePath(explicitPath)

	cfg := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: cfg,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	if err := Validate(cfg); err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:   resolvedPath,
		Config: cfg,
		Exists: true,
	}, nil
}
