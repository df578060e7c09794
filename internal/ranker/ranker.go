package ranker

import (
	"fmt"
	"sort"

	"github.com/dshills/codescout/pkg/types"
)

// Strategy selects how results are ordered before budget selection.
type Strategy string

const (
	// StrategyRelevance orders by score alone.
	StrategyRelevance Strategy = "relevance"

	// StrategyDiversity greedily discounts repeated hits from the same
	// file: the nth selection from a path is multiplied by 1/n.
	StrategyDiversity Strategy = "diversity"

	// StrategyBalanced blends normalized relevance and diversity
	// 0.7/0.3. Default.
	StrategyBalanced Strategy = "balanced"
)

// ChunkOverhead is the fixed per-chunk formatting cost added to each
// chunk's token estimate during budget accounting.
const ChunkOverhead = 50

const (
	balancedRelevanceWeight = 0.7
	balancedDiversityWeight = 0.3
)

// Validate rejects unknown strategies.
func (s Strategy) Validate() error {
	switch s {
	case StrategyRelevance, StrategyDiversity, StrategyBalanced:
		return nil
	default:
		return fmt.Errorf("%w: unknown ranking strategy %q", types.ErrInvalidConfig, s)
	}
}

// Rank orders results by the strategy and selects a prefix fitting the
// token budget. Selected chunks are always complete: a result that
// does not fit the remaining budget is skipped, never truncated, and
// iteration continues so smaller later chunks can still be used.
func Rank(results []types.SearchResult, strategy Strategy, tokenBudget int) ([]types.SearchResult, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if tokenBudget <= 0 {
		return nil, fmt.Errorf("%w: token budget must be positive, got %d", types.ErrInvalidConfig, tokenBudget)
	}
	if len(results) == 0 {
		return nil, nil
	}

	var ordered []types.SearchResult
	switch strategy {
	case StrategyDiversity:
		ordered = orderDiversity(results)
	case StrategyBalanced:
		ordered = orderBalanced(results)
	default:
		ordered = orderRelevance(results)
	}

	selected := make([]types.SearchResult, 0, len(ordered))
	used := 0
	for _, r := range ordered {
		cost := r.Chunk.TokenEstimate + ChunkOverhead
		if used+cost > tokenBudget {
			continue
		}
		selected = append(selected, r)
		used += cost
	}
	return selected, nil
}

// TokensUsed returns the budget consumed by a ranked selection.
func TokensUsed(results []types.SearchResult) int {
	total := 0
	for _, r := range results {
		total += r.Chunk.TokenEstimate + ChunkOverhead
	}
	return total
}

func orderRelevance(results []types.SearchResult) []types.SearchResult {
	out := append([]types.SearchResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// orderDiversity greedily picks the highest effective score each round,
// where a path's nth appearance is discounted by 1/n.
func orderDiversity(results []types.SearchResult) []types.SearchResult {
	remaining := append([]types.SearchResult(nil), results...)
	pathCount := make(map[string]int)
	out := make([]types.SearchResult, 0, len(remaining))

	for len(remaining) > 0 {
		bestIdx := 0
		bestScore := -1.0
		for i, r := range remaining {
			eff := float64(r.Score) / float64(pathCount[r.Chunk.Path]+1)
			if eff > bestScore {
				bestScore = eff
				bestIdx = i
			}
		}

		picked := remaining[bestIdx]
		pathCount[picked.Chunk.Path]++
		out = append(out, picked)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return out
}

// orderBalanced blends relevance and diversity on a shared [0,1]
// normalization before ordering.
func orderBalanced(results []types.SearchResult) []types.SearchResult {
	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	spread := float64(maxScore - minScore)

	normalize := func(s float32) float64 {
		if spread == 0 {
			return 1
		}
		return float64(s-minScore) / spread
	}

	type scored struct {
		result types.SearchResult
		final  float64
	}

	remaining := append([]types.SearchResult(nil), results...)
	pathCount := make(map[string]int)
	out := make([]scored, 0, len(remaining))

	for len(remaining) > 0 {
		bestIdx := 0
		bestFinal := -1.0
		for i, r := range remaining {
			diversity := 1.0 / float64(pathCount[r.Chunk.Path]+1)
			final := balancedRelevanceWeight*normalize(r.Score) + balancedDiversityWeight*diversity
			if final > bestFinal {
				bestFinal = final
				bestIdx = i
			}
		}

		picked := remaining[bestIdx]
		pathCount[picked.Chunk.Path]++
		out = append(out, scored{result: picked, final: bestFinal})
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	ordered := make([]types.SearchResult, len(out))
	for i, s := range out {
		ordered[i] = s.result
	}
	return ordered
}
