package retrieval

import (
	"sort"

	"github.com/dshills/codescout/pkg/types"
)

// fuse combines the two candidate lists according to the configured
// strategy and returns a deterministically ordered fused list.
func fuse(fuzzyList, semanticList []types.SearchResult, cfg Config) []types.SearchResult {
	var fused []types.SearchResult
	switch cfg.FusionStrategy {
	case FusionFuzzyOnly:
		fused = relabel(fuzzyList)
	case FusionSemanticOnly:
		fused = relabel(semanticList)
	case FusionWeightedScore:
		fused = fuseByScore(fuzzyList, semanticList, cfg, false)
	case FusionMaxScore:
		fused = fuseByScore(fuzzyList, semanticList, cfg, true)
	default:
		fused = fuseRRF(fuzzyList, semanticList, cfg)
	}

	sortFused(fused)
	if len(fused) > cfg.FinalResultCount {
		fused = fused[:cfg.FinalResultCount]
	}
	return fused
}

// fuseRRF applies Reciprocal Rank Fusion: each list contributes
// weight/(k + rank) for a chunk's 1-based rank in it, and a chunk
// absent from a list contributes nothing for that term.
func fuseRRF(fuzzyList, semanticList []types.SearchResult, cfg Config) []types.SearchResult {
	k := float64(cfg.RRFK)
	scores := make(map[string]float64)
	byID := make(map[string]types.SearchResult)

	for i, r := range fuzzyList {
		scores[r.Chunk.ID] += cfg.FuzzyWeight / (k + float64(i+1))
		if _, ok := byID[r.Chunk.ID]; !ok {
			byID[r.Chunk.ID] = r
		}
	}
	for i, r := range semanticList {
		scores[r.Chunk.ID] += cfg.SemanticWeight / (k + float64(i+1))
		if _, ok := byID[r.Chunk.ID]; !ok {
			byID[r.Chunk.ID] = r
		}
	}

	fused := make([]types.SearchResult, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, byID[id].WithScore(float32(score), types.SourceHybrid))
	}
	return fused
}

// fuseByScore blends native normalized scores: weighted sum, or the
// better of the two when max is set.
func fuseByScore(fuzzyList, semanticList []types.SearchResult, cfg Config, max bool) []types.SearchResult {
	type blend struct {
		result   types.SearchResult
		fuzzy    float64
		semantic float64
	}
	byID := make(map[string]*blend)

	for _, r := range fuzzyList {
		byID[r.Chunk.ID] = &blend{result: r, fuzzy: float64(r.Score)}
	}
	for _, r := range semanticList {
		if b, ok := byID[r.Chunk.ID]; ok {
			b.semantic = float64(r.Score)
			continue
		}
		byID[r.Chunk.ID] = &blend{result: r, semantic: float64(r.Score)}
	}

	fused := make([]types.SearchResult, 0, len(byID))
	for _, b := range byID {
		var score float64
		if max {
			score = b.fuzzy
			if b.semantic > score {
				score = b.semantic
			}
		} else {
			score = cfg.FuzzyWeight*b.fuzzy + cfg.SemanticWeight*b.semantic
		}
		fused = append(fused, b.result.WithScore(float32(score), types.SourceHybrid))
	}
	return fused
}

// relabel marks single-source results as the final hybrid output
// without changing their scores.
func relabel(results []types.SearchResult) []types.SearchResult {
	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		out[i] = r.WithScore(r.Score, types.SourceHybrid)
	}
	return out
}

// sortFused orders by score descending; ties go to the smaller chunk,
// then lexical path order, so equal-scored outputs are reproducible.
func sortFused(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.TokenEstimate != results[j].Chunk.TokenEstimate {
			return results[i].Chunk.TokenEstimate < results[j].Chunk.TokenEstimate
		}
		return results[i].Chunk.Path < results[j].Chunk.Path
	})
}
