// Package engine assembles the full pipeline from a project
// configuration: chunker, embedder, vector store, indexer, retrieval,
// and the context provider, sharing one store handle throughout.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/codescout/internal/chunker"
	"github.com/dshills/codescout/internal/chunker/languages"
	"github.com/dshills/codescout/internal/config"
	"github.com/dshills/codescout/internal/embedder"
	"github.com/dshills/codescout/internal/indexer"
	"github.com/dshills/codescout/internal/provider"
	"github.com/dshills/codescout/internal/retrieval"
	"github.com/dshills/codescout/internal/vectorstore"
	"github.com/dshills/codescout/pkg/types"
)

// Engine owns one project's indexing and retrieval components.
type Engine struct {
	Config    config.Config
	Store     *vectorstore.Store
	Embedder  embedder.Embedder
	Indexer   *indexer.Indexer
	Retrieval *retrieval.HybridRetrieval
	Provider  *provider.Provider
}

// Open builds an engine from configuration, loading any existing index
// payload from the configured index directory.
func Open(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The index dir must exist before the store resolves its payload
	// path, or a fresh project would persist vectors as a flat file
	// named after the directory.
	if err := os.MkdirAll(cfg.IndexDir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	store, err := vectorstore.Open(cfg.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	ck := chunker.New(languages.DefaultRegistry())

	idx, err := indexer.New(ck, cfg.Chunker, emb, store, indexer.Config{
		RootDir:        cfg.RootDir,
		IndexDir:       cfg.IndexDir,
		Workers:        cfg.MaxConcurrent,
		BatchSize:      cfg.BatchSize,
		EmbedBatchSize: cfg.Embedding.BatchSize,
		Incremental:    cfg.Incremental,
		IgnorePatterns: cfg.IgnorePatterns,
	})
	if err != nil {
		return nil, err
	}

	ret, err := retrieval.New(store, emb, cfg.Retrieval)
	if err != nil {
		return nil, err
	}

	prov, err := provider.New(ret, cfg.Provider)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Config:    cfg,
		Store:     store,
		Embedder:  emb,
		Indexer:   idx,
		Retrieval: ret,
		Provider:  prov,
	}, nil
}

// Index runs an indexing pass and refreshes the retrieval corpus and
// caches so searches see the new contents. Empty paths indexes the
// whole tree.
func (e *Engine) Index(ctx context.Context, paths []string) (*indexer.Stats, error) {
	stats, err := e.Indexer.Index(ctx, paths)
	if err != nil {
		return nil, err
	}
	e.Retrieval.Refresh()
	e.Provider.InvalidateCache()
	return stats, nil
}

// Search runs a hybrid search with stats.
func (e *Engine) Search(ctx context.Context, query string) ([]types.SearchResult, *retrieval.SearchStats, error) {
	return e.Retrieval.SearchWithStats(ctx, query)
}

// Clear drops the index, the incremental state, and all caches.
func (e *Engine) Clear() error {
	if err := e.Indexer.Clear(); err != nil {
		return err
	}
	e.Retrieval.Refresh()
	e.Provider.InvalidateCache()
	return nil
}

// Close releases the embedder's resources.
func (e *Engine) Close() error {
	return e.Embedder.Close()
}
