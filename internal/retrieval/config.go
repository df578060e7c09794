package retrieval

import (
	"crypto/sha256"
	"fmt"

	"github.com/dshills/codescout/pkg/types"
)

// FusionStrategy selects how fuzzy and semantic candidate lists are
// combined.
type FusionStrategy string

const (
	// FusionRRF is Reciprocal Rank Fusion, the default. Rank-based, so
	// it is insensitive to the very different native score scales of
	// the two stages.
	FusionRRF FusionStrategy = "rrf"

	// FusionWeightedScore blends the normalized native scores directly.
	FusionWeightedScore FusionStrategy = "weighted_score"

	// FusionMaxScore takes the better normalized score per chunk.
	FusionMaxScore FusionStrategy = "max_score"

	// FusionFuzzyOnly and FusionSemanticOnly bypass one stage entirely.
	FusionFuzzyOnly    FusionStrategy = "fuzzy_only"
	FusionSemanticOnly FusionStrategy = "semantic_only"
)

// Config controls hybrid retrieval. The fuzzy threshold and the fusion
// weights are configuration rather than constants: the normalization
// of fuzzy scores depends on the matcher's score range, and a matcher
// upgrade may require re-tuning them.
type Config struct {
	FusionStrategy    FusionStrategy `json:"fusion_strategy"`
	FuzzyWeight       float64        `json:"fuzzy_weight"`
	SemanticWeight    float64        `json:"semantic_weight"`
	RRFK              int            `json:"rrf_k"`
	CandidatePoolSize int            `json:"candidate_pool_size"`
	FinalResultCount  int            `json:"final_result_count"`
	FuzzyThreshold    float64        `json:"fuzzy_threshold"`
	MinQueryLength    int            `json:"min_query_length"`
	EnableRerank      bool           `json:"enable_rerank"`
	EnableCache       bool           `json:"enable_cache"`
	CacheSize         int            `json:"cache_size"`
	FuzzyMatchPath    bool           `json:"fuzzy_match_path"`
	FuzzyMatchContent bool           `json:"fuzzy_match_content"`
}

// DefaultConfig returns the retrieval defaults.
func DefaultConfig() Config {
	return Config{
		FusionStrategy:    FusionRRF,
		FuzzyWeight:       0.4,
		SemanticWeight:    0.6,
		RRFK:              60,
		CandidatePoolSize: 50,
		FinalResultCount:  10,
		FuzzyThreshold:    0.05,
		MinQueryLength:    2,
		EnableRerank:      true,
		EnableCache:       true,
		CacheSize:         100,
		FuzzyMatchPath:    true,
		FuzzyMatchContent: true,
	}
}

// Validate rejects malformed configuration before any search work.
func (c Config) Validate() error {
	switch c.FusionStrategy {
	case FusionRRF, FusionWeightedScore, FusionMaxScore, FusionFuzzyOnly, FusionSemanticOnly:
	default:
		return fmt.Errorf("%w: unknown fusion strategy %q", types.ErrInvalidConfig, c.FusionStrategy)
	}
	if c.FuzzyWeight < 0 || c.SemanticWeight < 0 {
		return fmt.Errorf("%w: fusion weights must be non-negative", types.ErrInvalidConfig)
	}
	if c.FuzzyWeight+c.SemanticWeight == 0 {
		return fmt.Errorf("%w: at least one fusion weight must be positive", types.ErrInvalidConfig)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("%w: rrf_k must be positive, got %d", types.ErrInvalidConfig, c.RRFK)
	}
	if c.CandidatePoolSize <= 0 {
		return fmt.Errorf("%w: candidate_pool_size must be positive", types.ErrInvalidConfig)
	}
	if c.FinalResultCount <= 0 {
		return fmt.Errorf("%w: final_result_count must be positive", types.ErrInvalidConfig)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy_threshold %f outside [0,1]", types.ErrInvalidConfig, c.FuzzyThreshold)
	}
	if c.MinQueryLength < 1 {
		return fmt.Errorf("%w: min_query_length must be at least 1", types.ErrInvalidConfig)
	}
	if c.EnableCache && c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache_size must be positive when caching is enabled", types.ErrInvalidConfig)
	}
	if !c.FuzzyMatchPath && !c.FuzzyMatchContent {
		return fmt.Errorf("%w: fuzzy search needs at least one of path or content matching", types.ErrInvalidConfig)
	}
	return nil
}

// fingerprint hashes the query together with every parameter that
// affects ranking, so a config change can never serve stale cached
// orderings.
func (c Config) fingerprint(query string) [32]byte {
	payload := fmt.Sprintf("%s|%s|%f|%f|%d|%d|%d|%f|%t|%t|%t",
		query, c.FusionStrategy, c.FuzzyWeight, c.SemanticWeight,
		c.RRFK, c.CandidatePoolSize, c.FinalResultCount,
		c.FuzzyThreshold, c.EnableRerank, c.FuzzyMatchPath, c.FuzzyMatchContent)
	return sha256.Sum256([]byte(payload))
}
