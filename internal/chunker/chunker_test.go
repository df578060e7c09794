package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/pkg/types"
)

func fixedConfig() Config {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyFixed
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "bogus" }, true},
		{"max tokens too small", func(c *Config) { c.MaxChunkTokens = 64 }, true},
		{"max tokens too large", func(c *Config) { c.MaxChunkTokens = 4096 }, true},
		{"min above max", func(c *Config) { c.MinChunkTokens = 450 }, true},
		{"negative overlap", func(c *Config) { c.OverlapLines = -1 }, true},
		{"overlap too large", func(c *Config) { c.OverlapLines = 51 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkFixed_CoversAllLines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("line := compute(input) // some representative code\n")
	}

	c := New(nil)
	chunks, err := c.Chunk("sample.txt", []byte(sb.String()), fixedConfig())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Blocks must be contiguous and non-overlapping.
	prevEnd := 0
	for _, ch := range chunks {
		assert.Equal(t, prevEnd+1, ch.StartLine)
		assert.GreaterOrEqual(t, ch.EndLine, ch.StartLine)
		prevEnd = ch.EndLine
	}
	assert.Equal(t, 200, prevEnd)
}

func TestChunk_TrailingNewlineDoesNotAddLine(t *testing.T) {
	c := New(nil)

	for _, strategy := range []Strategy{StrategyFixed, StrategySlidingWindow} {
		cfg := DefaultConfig()
		cfg.Strategy = strategy

		chunks, err := c.Chunk("three.txt", []byte("one\ntwo\nthree\n"), cfg)
		require.NoError(t, err)
		require.NotEmpty(t, chunks, string(strategy))
		assert.Equal(t, 3, chunks[len(chunks)-1].EndLine, string(strategy))
	}
}

func TestChunkFixed_OversizedLineMakesProgress(t *testing.T) {
	long := strings.Repeat("x", 20000)

	c := New(nil)
	chunks, err := c.Chunk("big.txt", []byte(long+"\n"+long), fixedConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Greater(t, chunks[0].TokenEstimate, DefaultConfig().MaxChunkTokens)
}

func TestChunkSlidingWindow_Overlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString(strings.Repeat("a", 80))
		sb.WriteString("\n")
	}

	cfg := DefaultConfig()
	cfg.Strategy = StrategySlidingWindow
	cfg.OverlapLines = 5

	c := New(nil)
	chunks, err := c.Chunk("window.txt", []byte(sb.String()), cfg)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		// Each window starts before the previous one ends: overlap held.
		assert.LessOrEqual(t, chunks[i].StartLine, chunks[i-1].EndLine)
		// And strictly advances.
		assert.Greater(t, chunks[i].StartLine, chunks[i-1].StartLine)
	}
	assert.Equal(t, 100, chunks[len(chunks)-1].EndLine)
}

func TestChunk_ContentAddressedIDs(t *testing.T) {
	src := []byte("func add(a, b int) int {\n\treturn a + b\n}\n")

	c := New(nil)
	first, err := c.Chunk("math.go", src, fixedConfig())
	require.NoError(t, err)
	second, err := c.Chunk("math.go", src, fixedConfig())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Len(t, first[i].ID, 64)
	}

	// Same content under a different path is a different chunk.
	moved, err := c.Chunk("other.go", src, fixedConfig())
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, moved[0].ID)
}

func TestChunk_SkipsWhitespaceOnlyBlocks(t *testing.T) {
	c := New(nil)
	chunks, err := c.Chunk("blank.txt", []byte("\n\n   \n\t\n"), fixedConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkFileAs_RecordsGivenName(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "util.go")
	require.NoError(t, os.WriteFile(path, []byte("package util\n\nvar X = 1\n"), 0644))

	c := New(nil)
	chunks, err := c.ChunkFileAs(path, "internal/util.go", fixedConfig())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "internal/util.go", chunks[0].Path)
}

func TestChunkFile_TooLarge(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "huge.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", 128)), 0644))

	cfg := fixedConfig()
	cfg.MaxFileBytes = 64

	c := New(nil)
	_, err := c.ChunkFile(path, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFileTooLarge)
}

func TestChunkSemantic_UnsupportedLanguageFallsBack(t *testing.T) {
	cfg := DefaultConfig() // adaptive
	src := []byte("some plain text\nwith a few lines\nof content\n")

	c := New(nil)
	chunks, err := c.Chunk("notes.txt", src, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Empty(t, chunks[0].Metadata.Signature)
	assert.Empty(t, chunks[0].Language)
}

func TestDocCommentAbove(t *testing.T) {
	lines := []string{
		"package main",
		"",
		"// Add returns the sum.",
		"// It never overflows in tests.",
		"func Add(a, b int) int {",
	}

	doc := docCommentAbove(lines, 4, "//")
	assert.Equal(t, "// Add returns the sum.\n// It never overflows in tests.", doc)

	assert.Empty(t, docCommentAbove(lines, 4, ""))
	assert.Empty(t, docCommentAbove(lines, 1, "//"))
}

func TestConfigFingerprint_ChangesWithSettings(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.MaxChunkTokens = 512
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
