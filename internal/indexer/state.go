package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateFile is the file name used for incremental indexing state.
const StateFile = "state.json"

const stateVersion = 1

// FileState records what the index knows about one source file.
type FileState struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	ModTime     time.Time `json:"mod_time"`
	ChunkIDs    []string  `json:"chunk_ids"`
}

// State is the incremental indexing ledger. Besides per-file hashes it
// pins the chunker fingerprint and embedding identity so configuration
// drift forces a full reindex instead of serving mixed vectors.
type State struct {
	Version            int                  `json:"version"`
	ChunkerFingerprint string               `json:"chunker_fingerprint"`
	EmbeddingProvider  string               `json:"embedding_provider"`
	EmbeddingModel     string               `json:"embedding_model"`
	EmbeddingDim       int                  `json:"embedding_dim"`
	LastIndexed        time.Time            `json:"last_indexed"`
	Files              map[string]FileState `json:"files"`
}

// NewState creates an empty state pinned to the given configuration.
func NewState(fingerprint, provider, model string, dim int) *State {
	return &State{
		Version:            stateVersion,
		ChunkerFingerprint: fingerprint,
		EmbeddingProvider:  provider,
		EmbeddingModel:     model,
		EmbeddingDim:       dim,
		Files:              make(map[string]FileState),
	}
}

// Drifted reports whether the state was produced under a different
// chunker or embedding configuration.
func (s *State) Drifted(fingerprint, provider, model string, dim int) bool {
	return s.ChunkerFingerprint != fingerprint ||
		s.EmbeddingProvider != provider ||
		s.EmbeddingModel != model ||
		s.EmbeddingDim != dim
}

// LoadState reads state from path. A missing file returns (nil, nil).
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	if s.Version != stateVersion {
		return nil, fmt.Errorf("state %s has version %d, want %d", path, s.Version, stateVersion)
	}
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	return &s, nil
}

// Save writes the state atomically via temp file and rename.
func (s *State) Save(path string) error {
	s.LastIndexed = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, StateFile+".tmp-*")
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
