// Package config defines the project configuration persisted as
// config.json in the index directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/codescout/internal/chunker"
	"github.com/dshills/codescout/internal/embedder"
	"github.com/dshills/codescout/internal/provider"
	"github.com/dshills/codescout/internal/retrieval"
	"github.com/dshills/codescout/pkg/types"
)

// ConfigFile is the file name used inside the index directory.
const ConfigFile = "config.json"

// Config is the full project configuration.
type Config struct {
	RootDir        string   `json:"root_dir"`
	IndexDir       string   `json:"index_dir"`
	BatchSize      int      `json:"batch_size"`
	MaxConcurrent  int      `json:"max_concurrent"`
	Incremental    bool     `json:"incremental"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`

	Chunker   chunker.Config   `json:"chunker"`
	Embedding embedder.Config  `json:"embedding"`
	Retrieval retrieval.Config `json:"retrieval"`
	Provider  provider.Config  `json:"provider"`
}

// Default returns a configuration for the given project root, with the
// index stored under root/.codescout.
func Default(rootDir string) Config {
	return Config{
		RootDir:     rootDir,
		IndexDir:    filepath.Join(rootDir, ".codescout"),
		BatchSize:   20,
		Incremental: true,
		Chunker:     chunker.DefaultConfig(),
		Embedding:   embedder.DefaultConfig(),
		Retrieval:   retrieval.DefaultConfig(),
		Provider:    provider.DefaultConfig(),
	}
}

// Validate checks the whole configuration tree.
func (c Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("%w: root_dir is required", types.ErrInvalidConfig)
	}
	if c.IndexDir == "" {
		return fmt.Errorf("%w: index_dir is required", types.ErrInvalidConfig)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size must be non-negative", types.ErrInvalidConfig)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("%w: max_concurrent must be non-negative", types.ErrInvalidConfig)
	}
	if err := c.Chunker.Validate(); err != nil {
		return err
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	return c.Provider.Validate()
}

// Load reads config.json from the index directory. A missing file
// returns defaults for the given root.
func Load(indexDir, rootDir string) (Config, error) {
	path := filepath.Join(indexDir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default(rootDir)
			cfg.IndexDir = indexDir
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default(rootDir)
	cfg.IndexDir = indexDir
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes config.json into the index directory.
func (c Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.IndexDir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	path := filepath.Join(c.IndexDir, ConfigFile)
	tmp, err := os.CreateTemp(c.IndexDir, ConfigFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
