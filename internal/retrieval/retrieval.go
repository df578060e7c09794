package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codescout/internal/embedder"
	"github.com/dshills/codescout/internal/vectorstore"
	"github.com/dshills/codescout/pkg/types"
)

// SearchStats reports what each retrieval stage did for one query.
// A query that found nothing is distinguishable from a degraded one:
// the former has zero counts and no recorded error, the latter carries
// SemanticError.
type SearchStats struct {
	FuzzyCount    int           `json:"fuzzy_count"`
	SemanticCount int           `json:"semantic_count"`
	FusedCount    int           `json:"fused_count"`
	CacheHit      bool          `json:"cache_hit"`
	SemanticError string        `json:"semantic_error,omitempty"`
	FuzzyTime     time.Duration `json:"fuzzy_time"`
	SemanticTime  time.Duration `json:"semantic_time"`
	TotalTime     time.Duration `json:"total_time"`
}

// HybridRetrieval runs fuzzy and semantic search concurrently, fuses
// the candidate lists, optionally reranks, and caches final orderings
// keyed by query fingerprint.
type HybridRetrieval struct {
	cfg      Config
	store    *vectorstore.Store
	embedder embedder.Embedder
	fuzzy    *fuzzyEngine
	cache    *lru.Cache[[32]byte, []types.SearchResult]
}

// New creates a HybridRetrieval over the given store and embedder and
// seeds the fuzzy corpus from the store's current contents.
func New(store *vectorstore.Store, emb embedder.Embedder, cfg Config) (*HybridRetrieval, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &HybridRetrieval{
		cfg:      cfg,
		store:    store,
		embedder: emb,
		fuzzy:    newFuzzyEngine(),
	}
	if cfg.EnableCache {
		cache, err := lru.New[[32]byte, []types.SearchResult](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		h.cache = cache
	}

	h.Refresh()
	return h, nil
}

// Refresh rebuilds the fuzzy corpus from the store and drops every
// cached ranking; call after the index changes.
func (h *HybridRetrieval) Refresh() {
	h.fuzzy.setChunks(h.store.Chunks(), h.cfg)
	if h.cache != nil {
		h.cache.Purge()
	}
}

// Search returns the fused, reranked results for query.
func (h *HybridRetrieval) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	results, _, err := h.SearchWithStats(ctx, query)
	return results, err
}

type stageOutput struct {
	results []types.SearchResult
	elapsed time.Duration
	err     error
}

// SearchWithStats runs the full pipeline and reports per-stage
// observability data. A failing semantic stage degrades the query to
// fuzzy-only results; the failure is recorded in stats, never hidden.
func (h *HybridRetrieval) SearchWithStats(ctx context.Context, query string) ([]types.SearchResult, *SearchStats, error) {
	start := time.Now()
	stats := &SearchStats{}

	query = strings.TrimSpace(query)
	if len(query) < h.cfg.MinQueryLength {
		return nil, nil, fmt.Errorf("%w: need at least %d characters", types.ErrQueryTooShort, h.cfg.MinQueryLength)
	}

	key := h.cfg.fingerprint(query)
	if h.cache != nil {
		if cached, ok := h.cache.Get(key); ok {
			stats.CacheHit = true
			stats.FusedCount = len(cached)
			stats.TotalTime = time.Since(start)
			return types.CopyResults(cached), stats, nil
		}
	}

	// The two stages share nothing mutable; fusion is the join point.
	fuzzyCh := make(chan stageOutput, 1)
	semanticCh := make(chan stageOutput, 1)

	go func() {
		st := time.Now()
		results := h.fuzzy.search(query, h.cfg, h.cfg.CandidatePoolSize)
		fuzzyCh <- stageOutput{results: results, elapsed: time.Since(st)}
	}()
	go func() {
		st := time.Now()
		results, err := h.semanticSearch(ctx, query)
		semanticCh <- stageOutput{results: results, elapsed: time.Since(st), err: err}
	}()

	var fuzzyOut, semanticOut stageOutput
	for i := 0; i < 2; i++ {
		select {
		case fuzzyOut = <-fuzzyCh:
			fuzzyCh = nil
		case semanticOut = <-semanticCh:
			semanticCh = nil
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	stats.FuzzyCount = len(fuzzyOut.results)
	stats.FuzzyTime = fuzzyOut.elapsed
	stats.SemanticTime = semanticOut.elapsed
	if semanticOut.err != nil {
		stats.SemanticError = semanticOut.err.Error()
		semanticOut.results = nil
	}
	stats.SemanticCount = len(semanticOut.results)

	fused := fuse(fuzzyOut.results, semanticOut.results, h.cfg)
	if h.cfg.EnableRerank {
		fused = rerank(query, fused)
	}
	stats.FusedCount = len(fused)

	// A degraded ranking must not outlive the outage that caused it:
	// only fully hybrid results are cacheable.
	if h.cache != nil && stats.SemanticError == "" {
		h.cache.Add(key, types.CopyResults(fused))
	}

	stats.TotalTime = time.Since(start)
	return fused, stats, nil
}

// semanticSearch embeds the query and scans the store by cosine
// similarity.
func (h *HybridRetrieval) semanticSearch(ctx context.Context, query string) ([]types.SearchResult, error) {
	if h.store.Count() == 0 {
		return nil, nil
	}

	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", types.ErrEmbeddingUnavailable, len(vectors))
	}

	return h.store.Search(vectors[0], h.cfg.CandidatePoolSize)
}

// CacheLen returns the number of cached rankings.
func (h *HybridRetrieval) CacheLen() int {
	if h.cache == nil {
		return 0
	}
	return h.cache.Len()
}
