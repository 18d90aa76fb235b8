package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestParseFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]string{"-port=9090", "-max-connections=5", "-backlog=5", "-log-level=debug"})
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 5, cfg.MaxConnections)
	require.Equal(t, 5, cfg.Backlog)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Defaults()
	cfg.Port = 80
	require.Error(t, cfg.Validate())

	cfg.Port = 70000
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBacklogAboveMaxConnections(t *testing.T) {
	cfg := Defaults()
	cfg.MaxConnections = 4
	cfg.Backlog = 10
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTinyBuffers(t *testing.T) {
	cfg := Defaults()
	cfg.RecvBufferBytes = 1024
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}

func TestConfigFileSuppliesDefaultsFlagsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netloopd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9999\nlog_level: warn\n"), 0o644))

	cfg, err := Parse([]string{"-config", path})
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Port)
	require.Equal(t, "warn", cfg.LogLevel)

	cfg, err = Parse([]string{"-config", path, "-port=8081"})
	require.NoError(t, err)
	require.Equal(t, 8081, cfg.Port)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestZerologLevelMapping(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "error"
	lvl, err := cfg.ZerologLevel()
	require.NoError(t, err)
	require.Equal(t, "error", lvl.String())
}
