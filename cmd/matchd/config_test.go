package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matchd.yaml")
	raw := `
listen: ":9090"
cutoff: 0.3
all_orientations: true
s3:
  endpoint: minio.local:9000
  access_key: key
  secret_key: secret
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 0.3, cfg.Cutoff)
	assert.True(t, cfg.AllOrientations)
	assert.Equal(t, "minio.local:9000", cfg.S3.Endpoint)
	// Untouched keys keep their defaults.
	assert.Equal(t, "./match.bleve", cfg.IndexPath)
	assert.Equal(t, 100, cfg.MaxCandidates)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MATCHD_LISTEN", ":7070")
	t.Setenv("MATCHD_CUTOFF", "0.25")
	t.Setenv("MATCHD_MAX_CANDIDATES", "50")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, 0.25, cfg.Cutoff)
	assert.Equal(t, 50, cfg.MaxCandidates)
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("MATCHD_CUTOFF", "not-a-number")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
