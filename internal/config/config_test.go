package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, AuthNone, cfg.Auth.Mode)
	assert.Equal(t, 1000, cfg.Limits.MaxConnections)
}

func TestLoad_ParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
host: "127.0.0.1"
port: 9090
auth:
  mode: token
limits:
  maxConnections: 42
  maxConnectionsPerIp: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, AuthToken, cfg.Auth.Mode)
	assert.Equal(t, 42, cfg.Limits.MaxConnections)
	assert.Equal(t, 3, cfg.Limits.MaxConnectionsPerIP)
}

func TestLoad_EnvOverridesHostAndPort(t *testing.T) {
	t.Setenv("HOST", "example.internal")
	t.Setenv("PORT", "4000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "example.internal", cfg.Host)
	assert.Equal(t, 4000, cfg.Port)
}

func TestConfig_PublicView_ExposesExpectedKeys(t *testing.T) {
	cfg := Default()
	view := cfg.PublicView()
	assert.Contains(t, view, "auth")
	assert.Contains(t, view, "limits")
}
