package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunFailsWhenChannelEndpointsMissing(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
transport:
  read_path: `+filepath.Join(dir, "no-ep-out")+`
  write_path: `+filepath.Join(dir, "no-ep-in")+`
`), 0o600))

	var stderr bytes.Buffer
	err := Run(context.Background(), Options{ConfigPath: configPath, Stderr: &stderr})
	require.Error(t, err)
	require.Contains(t, err.Error(), "open read endpoint")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("shell:\n  binary: \"\"\n"), 0o600))

	var stderr bytes.Buffer
	err := Run(context.Background(), Options{ConfigPath: configPath, Stderr: &stderr})
	require.Error(t, err)
	require.Contains(t, err.Error(), "validate config")
}
