package vectorstore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/codescout/pkg/types"
)

// PayloadFile is the file name used when Open is given a directory.
const PayloadFile = "vectors.json"

// Store holds chunks and their embeddings in memory, persisted as a
// single JSON payload. All methods are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string // resolved payload file path

	chunks  map[string]types.Chunk           // chunk ID -> chunk
	vectors map[string]types.EmbeddingRecord // chunk ID -> embedding
	byPath  map[string][]string              // file path -> chunk IDs
	dim     int                              // dimension locked in by first record, 0 until then
}

// Open loads or creates a store. A directory path resolves to
// PayloadFile inside it; any other path is used verbatim. A missing
// payload file yields an empty store.
func Open(path string) (*Store, error) {
	resolved := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		resolved = filepath.Join(path, PayloadFile)
	}

	s := &Store{
		path:    resolved,
		chunks:  make(map[string]types.Chunk),
		vectors: make(map[string]types.EmbeddingRecord),
		byPath:  make(map[string][]string),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the resolved payload file path.
func (s *Store) Path() string {
	return s.path
}

// Dimension returns the store's embedding dimension, or 0 when empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// AddChunks inserts chunks with their embeddings and persists the
// payload. Validation covers every record before any mutation: either
// the whole batch lands or none of it does. On a persist failure the
// in-memory state is rolled back and the previously saved payload is
// untouched.
func (s *Store) AddChunks(chunks []types.Chunk, records []types.EmbeddingRecord) error {
	if len(chunks) != len(records) {
		return fmt.Errorf("chunk count %d does not match record count %d", len(chunks), len(records))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if chunks[i].ID != records[i].ChunkID {
			return fmt.Errorf("record %d chunk ID %q does not match chunk %q", i, records[i].ChunkID, chunks[i].ID)
		}
		if dim == 0 {
			dim = records[i].Dim
		} else if records[i].Dim != dim {
			return fmt.Errorf("%w: record %d has dim %d, store has %d",
				types.ErrDimensionMismatch, i, records[i].Dim, dim)
		}
	}

	backup := s.snapshotLocked()

	for i := range chunks {
		id := chunks[i].ID
		if _, exists := s.chunks[id]; !exists {
			s.byPath[chunks[i].Path] = append(s.byPath[chunks[i].Path], id)
		}
		s.chunks[id] = chunks[i]
		s.vectors[id] = records[i]
	}
	s.dim = dim

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(backup)
		return fmt.Errorf("%w: %v", types.ErrPersist, err)
	}
	return nil
}

// RemoveByPath deletes every chunk belonging to the given file path and
// persists. Returns the number of chunks removed; removing an unknown
// path is a no-op, not an error.
func (s *Store) RemoveByPath(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byPath[path]
	if len(ids) == 0 {
		return 0, nil
	}

	backup := s.snapshotLocked()

	for _, id := range ids {
		delete(s.chunks, id)
		delete(s.vectors, id)
	}
	delete(s.byPath, path)
	if len(s.chunks) == 0 {
		s.dim = 0
	}

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(backup)
		return 0, fmt.Errorf("%w: %v", types.ErrPersist, err)
	}
	return len(ids), nil
}

// Search scores every stored chunk against the query vector by cosine
// similarity and returns the top limit results, best first. Ties order
// by chunk path then ID rather than insertion order: chunks live in
// maps, so insertion order would not survive a reload, while path+ID
// gives the same ordering on every run.
func (s *Store) Search(queryVector []float32, limit int) ([]types.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}
	if s.dim != 0 && len(queryVector) != s.dim {
		return nil, fmt.Errorf("%w: query has dim %d, store has %d",
			types.ErrDimensionMismatch, len(queryVector), s.dim)
	}

	results := make([]types.SearchResult, 0, len(s.chunks))
	for id, rec := range s.vectors {
		score := cosineSimilarity(queryVector, rec.Vector)
		results = append(results, types.SearchResult{
			Chunk:  s.chunks[id],
			Score:  float32(score),
			Source: types.SourceSemantic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.Path != results[j].Chunk.Path {
			return results[i].Chunk.Path < results[j].Chunk.Path
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Chunks returns a snapshot of all stored chunks.
func (s *Store) Chunks() []types.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunksSortedLocked()
}

func (s *Store) chunksSortedLocked() []types.Chunk {
	out := make([]types.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out
}

// Paths returns the distinct file paths present in the store.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clear removes everything and persists the empty payload.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.snapshotLocked()

	s.chunks = make(map[string]types.Chunk)
	s.vectors = make(map[string]types.EmbeddingRecord)
	s.byPath = make(map[string][]string)
	s.dim = 0

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(backup)
		return fmt.Errorf("%w: %v", types.ErrPersist, err)
	}
	return nil
}

type storeSnapshot struct {
	chunks  map[string]types.Chunk
	vectors map[string]types.EmbeddingRecord
	byPath  map[string][]string
	dim     int
}

func (s *Store) snapshotLocked() storeSnapshot {
	snap := storeSnapshot{
		chunks:  make(map[string]types.Chunk, len(s.chunks)),
		vectors: make(map[string]types.EmbeddingRecord, len(s.vectors)),
		byPath:  make(map[string][]string, len(s.byPath)),
		dim:     s.dim,
	}
	for k, v := range s.chunks {
		snap.chunks[k] = v
	}
	for k, v := range s.vectors {
		snap.vectors[k] = v
	}
	for k, v := range s.byPath {
		snap.byPath[k] = append([]string(nil), v...)
	}
	return snap
}

func (s *Store) restoreLocked(snap storeSnapshot) {
	s.chunks = snap.chunks
	s.vectors = snap.vectors
	s.byPath = snap.byPath
	s.dim = snap.dim
}

// cosineSimilarity computes cosine similarity with float64 accumulation
// to limit rounding drift on long vectors. Mismatched lengths and zero
// vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
