package vectorstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/pkg/types"
)

func makeChunk(t *testing.T, path, content string, start int) types.Chunk {
	t.Helper()
	c := types.Chunk{
		Path:      path,
		StartLine: start,
		EndLine:   start + 2,
		Content:   content,
	}
	c.ComputeTokenEstimate()
	c.ComputeID()
	return c
}

func makeRecord(chunk types.Chunk, vector []float32) types.EmbeddingRecord {
	return types.EmbeddingRecord{ChunkID: chunk.ID, Vector: vector, Dim: len(vector)}
}

func TestOpen_DirectoryResolvesToPayloadFile(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, PayloadFile), s.Path())
}

func TestOpen_FilePathUsedVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	assert.Equal(t, 0, s.Count())
}

func TestAddChunks_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	chunk := makeChunk(t, "main.go", "func main() {}", 1)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{chunk},
		[]types.EmbeddingRecord{makeRecord(chunk, []float32{0.5, 0.5, 0.5})},
	))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())
	assert.Equal(t, 3, reopened.Dimension())

	got := reopened.Chunks()
	require.Len(t, got, 1)
	assert.Equal(t, chunk.ID, got[0].ID)
	assert.Equal(t, chunk.Content, got[0].Content)
}

func TestAddChunks_DimensionMismatchRejectsBatch(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	a := makeChunk(t, "a.go", "package a", 1)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{a},
		[]types.EmbeddingRecord{makeRecord(a, []float32{1, 0, 0})},
	))

	b := makeChunk(t, "b.go", "package b", 1)
	err = s.AddChunks(
		[]types.Chunk{b},
		[]types.EmbeddingRecord{makeRecord(b, []float32{1, 0})},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	assert.Equal(t, 1, s.Count())
}

func TestSearch_SelfSimilarityNearOne(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	vec := []float32{0.3, -0.7, 0.648}
	chunk := makeChunk(t, "x.go", "some content", 1)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{chunk},
		[]types.EmbeddingRecord{makeRecord(chunk, vec)},
	))

	results, err := s.Search(vec, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
	assert.Equal(t, types.SourceSemantic, results[0].Source)
}

func TestSearch_OrdersByDescendingSimilarity(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	near := makeChunk(t, "near.go", "near match", 1)
	far := makeChunk(t, "far.go", "far match", 1)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{near, far},
		[]types.EmbeddingRecord{
			makeRecord(near, []float32{1, 0, 0}),
			makeRecord(far, []float32{0, 1, 0}),
		},
	))

	results, err := s.Search([]float32{0.9, 0.1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near.go", results[0].Chunk.Path)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_EqualScoresOrderByPath(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	// Identical vectors produce identical cosine scores regardless of
	// which map bucket each chunk lands in.
	vec := []float32{0.6, 0.8}
	zebra := makeChunk(t, "zebra.go", "package zebra", 1)
	alpha := makeChunk(t, "alpha.go", "package alpha", 1)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{zebra, alpha},
		[]types.EmbeddingRecord{makeRecord(zebra, vec), makeRecord(alpha, vec)},
	))

	for i := 0; i < 5; i++ {
		results, err := s.Search(vec, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "alpha.go", results[0].Chunk.Path)
		assert.Equal(t, "zebra.go", results[1].Chunk.Path)
	}
}

func TestSearch_LimitAndQueryDimension(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	for i, path := range []string{"a.go", "b.go", "c.go"} {
		chunk := makeChunk(t, path, path+" content", i+1)
		require.NoError(t, s.AddChunks(
			[]types.Chunk{chunk},
			[]types.EmbeddingRecord{makeRecord(chunk, []float32{float32(i + 1), 1, 0})},
		))
	}

	results, err := s.Search([]float32{1, 1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = s.Search([]float32{1, 1}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestRemoveByPath(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	kept := makeChunk(t, "keep.go", "kept content", 1)
	goneA := makeChunk(t, "gone.go", "first removed", 1)
	goneB := makeChunk(t, "gone.go", "second removed", 10)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{kept, goneA, goneB},
		[]types.EmbeddingRecord{
			makeRecord(kept, []float32{1, 0}),
			makeRecord(goneA, []float32{0, 1}),
			makeRecord(goneB, []float32{1, 1}),
		},
	))

	n, err := s.RemoveByPath("gone.go")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []string{"keep.go"}, s.Paths())

	// Unknown path is a no-op.
	n, err = s.RemoveByPath("missing.go")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Removal persisted.
	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	chunk := makeChunk(t, "main.go", "func main() {}", 1)
	require.NoError(t, s.AddChunks(
		[]types.Chunk{chunk},
		[]types.EmbeddingRecord{makeRecord(chunk, []float32{1, 2})},
	))

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0, s.Dimension())

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Count())
}

func TestOpen_CorruptPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PayloadFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Open(dir)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
