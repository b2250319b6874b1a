package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.conf")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.conf", path)
}

func TestResolvePathUsesXDGConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "stt", "config.conf"), path)
}

func TestResolvePathFallsBackToEtc(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/etc/stt/config.conf", path)
}

func TestLoadMissingFileReturnsDefaultsWithWarning(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "using defaults")
}

func TestLoadParsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	content := `{
		"user": "micha", // session owner
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "micha", loaded.Config.User)
}

func TestLoadSurfacesParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	require.NoError(t, os.WriteFile(path, []byte(`{"input": {"trigger_key": ""}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "input.trigger_key")
}
