package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 50, cfg.MaxBundlesPerDevice)
	require.Equal(t, 50, cfg.MaxWithdrawKeys)
	require.Equal(t, "localhost:9090", cfg.HTTPAddr)
	require.Equal(t, 2*time.Hour, cfg.ResponseTTL())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("max_bundles_per_device: 5\nhttp_addr: \"0.0.0.0:8080\"\nresponse_ttl_seconds: 60\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 5, cfg.MaxBundlesPerDevice)
	require.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	require.Equal(t, time.Minute, cfg.ResponseTTL())

	// Untouched fields keep their defaults.
	require.Equal(t, 50, cfg.MaxWithdrawKeys)
	require.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_bundles_per_device: [not an int"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
