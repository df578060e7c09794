package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/codescout/pkg/types"
)

// payloadVersion guards against loading payloads written by an
// incompatible layout.
const payloadVersion = 1

type payload struct {
	Version int                     `json:"version"`
	Dim     int                     `json:"dim"`
	Chunks  []types.Chunk           `json:"chunks"`
	Vectors []types.EmbeddingRecord `json:"vectors"`
}

// load reads the payload file into memory. A missing file is an empty
// store, not an error.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read payload %s: %w", s.path, err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode payload %s: %w", s.path, err)
	}
	if p.Version != payloadVersion {
		return fmt.Errorf("payload %s has version %d, want %d", s.path, p.Version, payloadVersion)
	}
	if len(p.Chunks) != len(p.Vectors) {
		return fmt.Errorf("payload %s has %d chunks but %d vectors", s.path, len(p.Chunks), len(p.Vectors))
	}

	for i := range p.Chunks {
		c := p.Chunks[i]
		rec := p.Vectors[i]
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("payload %s record %d: %w", s.path, i, err)
		}
		if c.ID != rec.ChunkID {
			return fmt.Errorf("payload %s record %d does not match chunk %q", s.path, i, c.ID)
		}
		s.chunks[c.ID] = c
		s.vectors[c.ID] = rec
		s.byPath[c.Path] = append(s.byPath[c.Path], c.ID)
		s.dim = rec.Dim
	}
	return nil
}

// persistLocked writes the payload atomically: serialize to a temp file
// in the same directory, fsync, then rename over the target. Callers
// hold the write lock.
func (s *Store) persistLocked() error {
	p := payload{Version: payloadVersion, Dim: s.dim}
	for _, c := range s.chunksSortedLocked() {
		p.Chunks = append(p.Chunks, c)
		p.Vectors = append(p.Vectors, s.vectors[c.ID])
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, PayloadFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
