package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunk(path, content string) Chunk {
	c := Chunk{
		Path:      path,
		StartLine: 1,
		EndLine:   3,
		Language:  "go",
		Content:   content,
	}
	c.ComputeTokenEstimate()
	c.ComputeID()
	return c
}

func TestComputeIDDeterministic(t *testing.T) {
	a := newTestChunk("pkg/a.go", "func A() {}")
	b := newTestChunk("pkg/a.go", "func A() {}")
	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, a.ID, 64)
}

func TestComputeIDSensitivity(t *testing.T) {
	base := newTestChunk("pkg/a.go", "func A() {}")

	content := newTestChunk("pkg/a.go", "func B() {}")
	assert.NotEqual(t, base.ID, content.ID)

	path := newTestChunk("pkg/b.go", "func A() {}")
	assert.NotEqual(t, base.ID, path.ID)

	lines := newTestChunk("pkg/a.go", "func A() {}")
	lines.StartLine = 10
	lines.EndLine = 12
	lines.ComputeID()
	assert.NotEqual(t, base.ID, lines.ID)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("x"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestChunkValidate(t *testing.T) {
	valid := newTestChunk("pkg/a.go", "func A() {}")
	require.NoError(t, valid.Validate())

	empty := valid
	empty.Content = ""
	assert.Error(t, empty.Validate())

	noPath := valid
	noPath.Path = ""
	assert.Error(t, noPath.Validate())

	noID := valid
	noID.ID = ""
	assert.Error(t, noID.Validate())

	inverted := valid
	inverted.StartLine = 5
	inverted.EndLine = 2
	assert.Error(t, inverted.Validate())
}

func TestLineCount(t *testing.T) {
	c := Chunk{StartLine: 10, EndLine: 10}
	assert.Equal(t, 1, c.LineCount())

	c.EndLine = 14
	assert.Equal(t, 5, c.LineCount())

	c.EndLine = 9
	assert.Equal(t, 0, c.LineCount())
}

func TestExtension(t *testing.T) {
	for path, want := range map[string]string{
		"internal/a.go": "go",
		"src/App.TS":    "ts",
		"Makefile":      "",
		"weird.":        "",
	} {
		c := Chunk{Path: path}
		assert.Equal(t, want, c.Extension(), path)
	}
}

func TestEmbeddingRecordValidate(t *testing.T) {
	rec := EmbeddingRecord{ChunkID: "abc", Vector: []float32{1, 2, 3}, Dim: 3}
	require.NoError(t, rec.Validate())

	rec.Dim = 4
	err := rec.Validate()
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	rec = EmbeddingRecord{Vector: []float32{1}, Dim: 1}
	assert.ErrorIs(t, rec.Validate(), ErrInvalidChunkID)

	rec = EmbeddingRecord{ChunkID: "abc"}
	assert.Error(t, rec.Validate())
}

func TestCopyResultsIsDeep(t *testing.T) {
	orig := []SearchResult{
		{
			Chunk:  newTestChunk("pkg/a.go", "func A() {}"),
			Score:  0.9,
			Source: SourceHybrid,
		},
	}
	orig[0].Chunk.Metadata.Imports = []string{"fmt"}

	cp := CopyResults(orig)
	require.Len(t, cp, 1)

	cp[0].Score = 0.1
	cp[0].Chunk.Metadata.Imports[0] = "os"

	assert.Equal(t, float32(0.9), orig[0].Score)
	assert.Equal(t, "fmt", orig[0].Chunk.Metadata.Imports[0])
}

func TestSearchResultValidate(t *testing.T) {
	sr := SearchResult{Chunk: newTestChunk("a.go", "x"), Score: 0.5, Source: SourceFuzzy}
	require.NoError(t, sr.Validate())

	sr.Source = "grep"
	assert.ErrorIs(t, sr.Validate(), ErrInvalidSource)

	sr.Source = SourceSemantic
	sr.Score = -0.1
	assert.ErrorIs(t, sr.Validate(), ErrInvalidScore)
}
