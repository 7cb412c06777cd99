// Package config loads ragmcp's runtime configuration from environment
// variables with an optional YAML config-file underlay, following the
// precedence env > project config > user config > defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GroupingMode selects the optional statistical result-trimming strategy
// applied after distance filtering.
type GroupingMode string

const (
	GroupingNone    GroupingMode = ""
	GroupingSimilar GroupingMode = "similar"
	GroupingRelated GroupingMode = "related"
)

// Config is ragmcp's complete runtime configuration.
type Config struct {
	// RootDir is the directory file access is confined to.
	RootDir string `yaml:"root_dir" json:"root_dir"`

	// DBDir is the directory the vector store's persisted table and indexes live in.
	DBDir string `yaml:"db_dir" json:"db_dir"`

	// ModelCacheDir is named in EmbeddingError messages and suggestions.
	ModelCacheDir string `yaml:"model_cache_dir" json:"model_cache_dir"`

	// ModelID identifies the embedding model (provider-specific name).
	ModelID string `yaml:"model_id" json:"model_id"`

	// MaxFileSizeBytes is loaded from config files and RAGMCP_MAX_FILE_SIZE.
	// No parse or validate step reads it; files are not rejected by size.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`

	// ChunkSize and ChunkOverlap are the chunker's target window and overlap, in characters.
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// HybridWeight blends lexical (weight) and dense (1-weight) search scores.
	HybridWeight float64 `yaml:"hybrid_weight" json:"hybrid_weight"`

	// MaxDistance, if > 0, filters out results above this distance score regardless of minScore.
	MaxDistance float64 `yaml:"max_distance" json:"max_distance"`

	// Grouping selects the optional statistical result-trimming mode.
	Grouping GroupingMode `yaml:"grouping" json:"grouping"`
}

// Defaults for every Config field.
const (
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultHybridWeight    = 0.6
	DefaultMaxFileSize     = 10 * 1024 * 1024 // 10MB
	DefaultModelID         = "all-minilm"
)

// Default returns configuration with every field at its built-in default.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return Config{
		RootDir:          ".",
		DBDir:            filepath.Join(home, ".ragmcp", "db"),
		ModelCacheDir:    filepath.Join(home, ".ragmcp", "models"),
		ModelID:          DefaultModelID,
		MaxFileSizeBytes: DefaultMaxFileSize,
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
		HybridWeight:     DefaultHybridWeight,
	}
}

// Load builds the effective configuration: defaults, overlaid with the user
// config file (if present), overlaid with the project config file (if
// present), overlaid with environment variables (highest precedence).
func Load() (Config, error) {
	cfg := Default()

	if UserConfigExists() {
		if err := mergeYAMLFile(&cfg, GetUserConfigPath()); err != nil {
			return cfg, fmt.Errorf("loading user config: %w", err)
		}
	}
	if fileExists(ProjectConfigPath()) {
		if err := mergeYAMLFile(&cfg, ProjectConfigPath()); err != nil {
			return cfg, fmt.Errorf("loading project config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mergeYAMLFile unmarshals path's YAML content on top of cfg's current values.
func mergeYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides overlays RAGMCP_* environment variables on cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAGMCP_ROOT_DIR"); v != "" {
		cfg.RootDir = v
	}
	if v := os.Getenv("RAGMCP_DB_DIR"); v != "" {
		cfg.DBDir = v
	}
	if v := os.Getenv("RAGMCP_MODEL_CACHE_DIR"); v != "" {
		cfg.ModelCacheDir = v
	}
	if v := os.Getenv("RAGMCP_MODEL_ID"); v != "" {
		cfg.ModelID = v
	}
	if v := os.Getenv("RAGMCP_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxFileSizeBytes = n
		}
	}
	if v := os.Getenv("RAGMCP_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkSize = n
		}
	}
	if v := os.Getenv("RAGMCP_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkOverlap = n
		}
	}
	if v := os.Getenv("RAGMCP_HYBRID_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HybridWeight = f
		}
	}
	if v := os.Getenv("RAGMCP_MAX_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxDistance = f
		}
	}
	if v := strings.ToLower(os.Getenv("RAGMCP_GROUPING")); v != "" {
		switch GroupingMode(v) {
		case GroupingSimilar, GroupingRelated:
			cfg.Grouping = GroupingMode(v)
		}
	}
}

// Validate checks invariants required of the configuration itself, as
// distinct from per-request validation, which lives in package rag.
func (c Config) Validate() error {
	if c.HybridWeight < 0 || c.HybridWeight > 1 {
		return fmt.Errorf("hybrid_weight must be in [0,1], got %v", c.HybridWeight)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	if c.MaxDistance < 0 || (c.MaxDistance > 0 && math.IsNaN(c.MaxDistance)) {
		return fmt.Errorf("max_distance must be non-negative, got %v", c.MaxDistance)
	}
	switch c.Grouping {
	case GroupingNone, GroupingSimilar, GroupingRelated:
	default:
		return fmt.Errorf("unknown grouping mode %q", c.Grouping)
	}
	return nil
}

// GetUserConfigPath returns the path to the user/global configuration file,
// following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ragmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ragmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "ragmcp", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the path to a per-directory override file.
func ProjectConfigPath() string {
	return ".ragmcp.yaml"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
