package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_SatisfiesValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultHybridWeight, cfg.HybridWeight)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
}

func TestValidate_RejectsOutOfRangeHybridWeight(t *testing.T) {
	cfg := Default()
	cfg.HybridWeight = 1.5
	assert.Error(t, cfg.Validate())

	cfg.HybridWeight = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOverlapNotLessThanChunkSize(t *testing.T) {
	cfg := Default()
	cfg.ChunkOverlap = cfg.ChunkSize
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownGroupingMode(t *testing.T) {
	cfg := Default()
	cfg.Grouping = "fuzzy"
	assert.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RAGMCP_HYBRID_WEIGHT", "0.25")
	t.Setenv("RAGMCP_CHUNK_SIZE", "500")
	t.Setenv("RAGMCP_GROUPING", "similar")

	cfg := Default()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 0.25, cfg.HybridWeight)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, GroupingSimilar, cfg.Grouping)
}

func TestGetUserConfigPath_HonorsXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := GetUserConfigPath()
	assert.Equal(t, filepath.Join(dir, "ragmcp", "config.yaml"), path)
}

func TestLoad_MergesUserConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "ragmcp")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	content := "hybrid_weight: 0.3\nchunk_size: 777\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.HybridWeight)
	assert.Equal(t, 777, cfg.ChunkSize)
}
