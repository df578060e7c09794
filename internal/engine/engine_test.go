package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/internal/config"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default(root)
	cfg.Embedding.Dimension = 32

	e, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, root
}

func TestEngine_FreshProjectCreatesIndexDir(t *testing.T) {
	e, root := newTestEngine(t)

	indexDir := filepath.Join(root, ".codescout")
	info, err := os.Stat(indexDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(indexDir, "vectors.json"), e.Store.Path())

	require.NoError(t, os.WriteFile(filepath.Join(root, "one.go"), []byte("package one\n\nfunc Thing() {}\n"), 0644))
	_, err = e.Index(context.Background(), nil)
	require.NoError(t, err)

	// Both payloads live inside the directory, never as a flat file
	// named after it.
	_, err = os.Stat(filepath.Join(indexDir, "vectors.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(indexDir, "state.json"))
	assert.NoError(t, err)
}

func TestEngine_IndexThenSearch(t *testing.T) {
	e, root := newTestEngine(t)

	src := "package auth\n\n// ValidateLogin checks the supplied credentials.\nfunc ValidateLogin(user, password string) error {\n\treturn check(user, password)\n}\n"
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "auth.go"), []byte(src), 0644))

	stats, err := e.Index(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)

	results, searchStats, err := e.Search(context.Background(), "ValidateLogin")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "internal/auth.go", results[0].Chunk.Path)
	assert.False(t, searchStats.CacheHit)
}

func TestEngine_IndexRefreshesSearchCorpus(t *testing.T) {
	e, root := newTestEngine(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "one.go"), []byte("package one\n\nfunc FirstThing() {}\n"), 0644))
	_, err := e.Index(context.Background(), nil)
	require.NoError(t, err)

	_, _, err = e.Search(context.Background(), "SecondThing")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "two.go"), []byte("package two\n\nfunc SecondThing() {}\n"), 0644))
	_, err = e.Index(context.Background(), nil)
	require.NoError(t, err)

	results, stats, err := e.Search(context.Background(), "SecondThing")
	require.NoError(t, err)
	assert.False(t, stats.CacheHit, "indexing must purge the query cache")
	require.NotEmpty(t, results)
	assert.Equal(t, "two.go", results[0].Chunk.Path)
}

func TestEngine_Clear(t *testing.T) {
	e, root := newTestEngine(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "one.go"), []byte("package one\n\nfunc Thing() {}\n"), 0644))
	_, err := e.Index(context.Background(), nil)
	require.NoError(t, err)
	require.Greater(t, e.Store.Count(), 0)

	require.NoError(t, e.Clear())
	assert.Equal(t, 0, e.Store.Count())

	status, err := e.Indexer.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, status.FileCount)
}
