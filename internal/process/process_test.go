package process

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpawnPipesStdout(t *testing.T) {
	p, err := Spawn([]string{"sh", "-c", "printf ready"}, false)
	require.NoError(t, err)
	require.Nil(t, p.Stdin())

	out, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	require.Equal(t, "ready", string(out))

	require.NoError(t, p.Release())
}

func TestSpawnPipesStdinWhenRequested(t *testing.T) {
	p, err := Spawn([]string{"cat"}, true)
	require.NoError(t, err)
	require.NotNil(t, p.Stdin())

	_, err = p.Stdin().Write([]byte("echoed through cat"))
	require.NoError(t, err)
	require.NoError(t, p.Stdin().Close())

	out, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	require.Equal(t, "echoed through cat", string(out))

	require.NoError(t, p.Release())
}

func TestSpawnMissingBinary(t *testing.T) {
	_, err := Spawn([]string{"/no/such/binary"}, false)
	require.Error(t, err)
}

func TestSpawnEmptyArgv(t *testing.T) {
	_, err := Spawn(nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty argv")
}

func TestReleaseToleratesNonzeroExit(t *testing.T) {
	p, err := Spawn([]string{"sh", "-c", "exit 3"}, false)
	require.NoError(t, err)

	_, err = io.ReadAll(p.Stdout())
	require.NoError(t, err)

	require.NoError(t, p.Release())
}
