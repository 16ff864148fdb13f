package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	original := configPath
	configPath = path
	t.Cleanup(func() { configPath = original })
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "revive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAPIAddrFromConfig(t *testing.T) {
	t.Run("custom port", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, t.TempDir(), "api:\n  port: 5570\n  host: 127.0.0.1\n"))
		assert.Equal(t, "http://127.0.0.1:5570", loadAPIAddrFromConfig())
	})

	t.Run("default port", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, t.TempDir(), "watchdog:\n  failure_threshold: 5\n"))
		assert.Equal(t, constants.DefaultAPIAddress, loadAPIAddrFromConfig())
	})

	t.Run("wildcard host uses loopback", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, t.TempDir(), "api:\n  host: 0.0.0.0\n  port: 6000\n"))
		assert.Equal(t, "http://127.0.0.1:6000", loadAPIAddrFromConfig())
	})

	t.Run("missing config", func(t *testing.T) {
		withConfigPath(t, "/nonexistent/revive.yaml")
		assert.Empty(t, loadAPIAddrFromConfig())
	})

	t.Run("invalid config", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, t.TempDir(), "api: [unclosed\n"))
		assert.Empty(t, loadAPIAddrFromConfig())
	})
}

func TestDiscoverAPIAddress(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("default without state or config", func(t *testing.T) {
		withConfigPath(t, filepath.Join(dir, "missing.yaml"))
		assert.Equal(t, constants.DefaultAPIAddress, discoverAPIAddress())
	})

	t.Run("config when no state", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, dir, "api:\n  port: 5999\n"))
		assert.Equal(t, "http://127.0.0.1:5999", discoverAPIAddress())
	})

	t.Run("state wins over config", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, dir, "api:\n  port: 5999\n"))
		state := &daemon.State{
			PID:        os.Getpid(),
			Host:       "127.0.0.1",
			Port:       6123,
			StartedAt:  time.Now(),
			ConfigFile: "revive.yaml",
		}
		require.NoError(t, state.Write(dir))
		t.Cleanup(func() { _ = daemon.RemoveState(dir) })

		assert.Equal(t, "http://127.0.0.1:6123", discoverAPIAddress())
	})
}

func TestLoadRunConfig(t *testing.T) {
	t.Run("missing default file falls back to defaults", func(t *testing.T) {
		withConfigPath(t, filepath.Join(t.TempDir(), "revive.yaml"))

		cfg, path, err := loadRunConfig(false)
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Equal(t, constants.DefaultAPIPort, cfg.API.Port)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		withConfigPath(t, filepath.Join(t.TempDir(), "revive.yaml"))

		_, _, err := loadRunConfig(true)
		assert.Error(t, err)
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		withConfigPath(t, writeConfig(t, t.TempDir(), "watchdog:\n  failure_threshold: 0\n  probe: carrier-pigeon\n"))

		_, _, err := loadRunConfig(false)
		assert.Error(t, err)
	})

	t.Run("loads file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "watchdog:\n  server_id: \"42\"\n")
		withConfigPath(t, path)

		cfg, got, err := loadRunConfig(true)
		require.NoError(t, err)
		assert.Equal(t, path, got)
		assert.Equal(t, "42", cfg.Watchdog.ServerID)
	})
}
