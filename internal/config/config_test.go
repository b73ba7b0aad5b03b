package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, ":2049", cfg.Server.Addr)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 240*time.Second, cfg.DRC.TTL)
	require.Equal(t, 65536, cfg.DRC.MaxEntries)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestApplyDefaultsPreservesSetValues(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Addr: ":2050"}}
	ApplyDefaults(cfg)
	require.Equal(t, ":2050", cfg.Server.Addr)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nfs3d.yaml")
	content := `
logging:
  level: DEBUG
server:
  addr: ":2150"
  max_connections: 64
drc:
  max_entries: 1024
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, ":2150", cfg.Server.Addr)
	require.Equal(t, 64, cfg.Server.MaxConnections)
	require.Equal(t, 1024, cfg.DRC.MaxEntries)
	// untouched fields still get their defaults
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, 240*time.Second, cfg.DRC.TTL)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":2049", cfg.Server.Addr)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nfs3d.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":2150\"\n"), 0644))

	t.Setenv("NFS3D_SERVER_ADDR", ":2999")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":2999", cfg.Server.Addr)
}
