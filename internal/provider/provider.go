package provider

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codescout/internal/ranker"
	"github.com/dshills/codescout/internal/retrieval"
	"github.com/dshills/codescout/pkg/types"
)

// Config controls the context facade.
type Config struct {
	TokenBudget   int             `json:"token_budget"`
	Strategy      ranker.Strategy `json:"strategy"`
	MinConfidence float64         `json:"min_confidence"`
	EnableCache   bool            `json:"enable_cache"`
	CacheSize     int             `json:"cache_size"`
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		TokenBudget:   2000,
		Strategy:      ranker.StrategyBalanced,
		MinConfidence: 0.5,
		EnableCache:   true,
		CacheSize:     100,
	}
}

// Validate rejects malformed configuration.
func (c Config) Validate() error {
	if c.TokenBudget <= 0 {
		return fmt.Errorf("%w: token_budget must be positive", types.ErrInvalidConfig)
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %f outside [0,1]", types.ErrInvalidConfig, c.MinConfidence)
	}
	if c.EnableCache && c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache_size must be positive when caching is enabled", types.ErrInvalidConfig)
	}
	return nil
}

// Metadata carries hints from an external intent classifier. A nil
// Metadata means "no classifier ran" and always searches.
type Metadata struct {
	// Confidence is the classifier's belief that codebase context will
	// help. Below MinConfidence the provider declines to search unless
	// ForceSearch is set.
	Confidence  float64  `json:"confidence"`
	ForceSearch bool     `json:"force_search,omitempty"`
	RecentPaths []string `json:"recent_paths,omitempty"`
	RecentTerms []string `json:"recent_terms,omitempty"`
}

// ContextBundle is a formatted context payload ready for a model
// prompt.
type ContextBundle struct {
	Query      string               `json:"query"`
	Chunks     []types.SearchResult `json:"chunks"`
	Text       string               `json:"text"`
	TokensUsed int                  `json:"tokens_used"`
}

type cacheKey struct {
	query  string
	budget int
}

// Provider is the top-level context facade: confidence gate, retrieve,
// rank to budget, format. Declining to search returns (nil, nil),
// which is a distinct outcome from searching and finding nothing.
type Provider struct {
	cfg       Config
	retrieval *retrieval.HybridRetrieval
	cache     *lru.Cache[cacheKey, *ContextBundle]
}

// New creates a Provider.
func New(r *retrieval.HybridRetrieval, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{cfg: cfg, retrieval: r}
	if cfg.EnableCache {
		cache, err := lru.New[cacheKey, *ContextBundle](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create context cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// ProvideContext retrieves, ranks, and formats codebase context for a
// query. tokenBudget <= 0 falls back to the configured default. meta
// may be nil.
func (p *Provider) ProvideContext(ctx context.Context, query string, tokenBudget int, meta *Metadata) (*ContextBundle, error) {
	if tokenBudget <= 0 {
		tokenBudget = p.cfg.TokenBudget
	}

	if meta != nil && !meta.ForceSearch && meta.Confidence < p.cfg.MinConfidence {
		return nil, nil
	}

	key := cacheKey{query: query, budget: tokenBudget}
	if p.cache != nil {
		if bundle, ok := p.cache.Get(key); ok {
			return copyBundle(bundle), nil
		}
	}

	results, err := p.retrieval.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	selected, err := ranker.Rank(results, p.cfg.Strategy, tokenBudget)
	if err != nil {
		return nil, err
	}

	bundle := &ContextBundle{
		Query:      query,
		Chunks:     selected,
		Text:       formatBundle(selected),
		TokensUsed: ranker.TokensUsed(selected),
	}

	if p.cache != nil {
		p.cache.Add(key, copyBundle(bundle))
	}
	return bundle, nil
}

// InvalidateCache drops all cached bundles; call after reindexing.
func (p *Provider) InvalidateCache() {
	if p.cache != nil {
		p.cache.Purge()
	}
}

// formatBundle renders selected chunks as a markdown document with one
// section per chunk.
func formatBundle(results []types.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# Relevant Codebase Context\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "## %d. `%s` (lines %d-%d)\n", i+1, r.Chunk.Path, r.Chunk.StartLine, r.Chunk.EndLine)
		fmt.Fprintf(&sb, "_Relevance: %.2f, Source: %s_\n\n", r.Score, r.Source)
		fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", r.Chunk.Language, r.Chunk.Content)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func copyBundle(b *ContextBundle) *ContextBundle {
	return &ContextBundle{
		Query:      b.Query,
		Chunks:     types.CopyResults(b.Chunks),
		Text:       b.Text,
		TokensUsed: b.TokensUsed,
	}
}
