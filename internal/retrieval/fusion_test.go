package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/pkg/types"
)

func result(id, path string, tokens int, score float32, source types.SearchSource) types.SearchResult {
	return types.SearchResult{
		Chunk: types.Chunk{
			ID:            id,
			Path:          path,
			StartLine:     1,
			EndLine:       3,
			Content:       "content of " + id,
			TokenEstimate: tokens,
		},
		Score:  score,
		Source: source,
	}
}

func TestFuseRRF_HandComputedTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRerank = false

	// Fuzzy ranking: A, B, C. Semantic ranking: B, C, D.
	fuzzyList := []types.SearchResult{
		result("A", "a.go", 10, 0.9, types.SourceFuzzy),
		result("B", "b.go", 10, 0.8, types.SourceFuzzy),
		result("C", "c.go", 10, 0.7, types.SourceFuzzy),
	}
	semanticList := []types.SearchResult{
		result("B", "b.go", 10, 0.95, types.SourceSemantic),
		result("C", "c.go", 10, 0.85, types.SourceSemantic),
		result("D", "d.go", 10, 0.75, types.SourceSemantic),
	}

	fused := fuse(fuzzyList, semanticList, cfg)
	require.Len(t, fused, 4)

	// k=60, weights 0.4/0.6:
	//   A: 0.4/61                    = 0.0065574
	//   B: 0.4/62 + 0.6/61          = 0.0162889
	//   C: 0.4/63 + 0.6/62          = 0.0160266
	//   D: 0.6/63                    = 0.0095238
	assert.Equal(t, "B", fused[0].Chunk.ID)
	assert.Equal(t, "C", fused[1].Chunk.ID)
	assert.Equal(t, "D", fused[2].Chunk.ID)
	assert.Equal(t, "A", fused[3].Chunk.ID)

	assert.InDelta(t, 0.4/62+0.6/61, float64(fused[0].Score), 1e-6)
	assert.InDelta(t, 0.4/63+0.6/62, float64(fused[1].Score), 1e-6)
	assert.InDelta(t, 0.6/63, float64(fused[2].Score), 1e-6)
	assert.InDelta(t, 0.4/61, float64(fused[3].Score), 1e-6)

	for _, r := range fused {
		assert.Equal(t, types.SourceHybrid, r.Source)
	}
}

func TestFuseRRF_MonotonicInRank(t *testing.T) {
	cfg := DefaultConfig()

	fuzzyList := []types.SearchResult{
		result("first", "a.go", 10, 0.9, types.SourceFuzzy),
		result("second", "b.go", 10, 0.8, types.SourceFuzzy),
	}

	fused := fuse(fuzzyList, nil, cfg)
	require.Len(t, fused, 2)
	assert.Equal(t, "first", fused[0].Chunk.ID)
	assert.Greater(t, fused[0].Score, fused[1].Score)
}

func TestFuse_TieBreaksBySizeThenPath(t *testing.T) {
	cfg := DefaultConfig()

	// Both rank 1 in one list each with equal weights: identical score.
	cfg.FuzzyWeight = 0.5
	cfg.SemanticWeight = 0.5

	fuzzyList := []types.SearchResult{result("big", "z.go", 500, 0.9, types.SourceFuzzy)}
	semanticList := []types.SearchResult{result("small", "a.go", 20, 0.9, types.SourceSemantic)}

	fused := fuse(fuzzyList, semanticList, cfg)
	require.Len(t, fused, 2)
	assert.Equal(t, "small", fused[0].Chunk.ID)

	// Equal sizes fall through to path order.
	fuzzyList = []types.SearchResult{result("x", "zz.go", 20, 0.9, types.SourceFuzzy)}
	semanticList = []types.SearchResult{result("y", "aa.go", 20, 0.9, types.SourceSemantic)}
	fused = fuse(fuzzyList, semanticList, cfg)
	assert.Equal(t, "y", fused[0].Chunk.ID)
}

func TestFuse_TruncatesToFinalResultCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FinalResultCount = 2

	fuzzyList := []types.SearchResult{
		result("A", "a.go", 10, 0.9, types.SourceFuzzy),
		result("B", "b.go", 10, 0.8, types.SourceFuzzy),
		result("C", "c.go", 10, 0.7, types.SourceFuzzy),
	}

	fused := fuse(fuzzyList, nil, cfg)
	assert.Len(t, fused, 2)
}

func TestFuse_WeightedAndMaxStrategies(t *testing.T) {
	fuzzyList := []types.SearchResult{result("A", "a.go", 10, 0.5, types.SourceFuzzy)}
	semanticList := []types.SearchResult{result("A", "a.go", 10, 0.9, types.SourceSemantic)}

	cfg := DefaultConfig()
	cfg.FusionStrategy = FusionWeightedScore
	fused := fuse(fuzzyList, semanticList, cfg)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.4*0.5+0.6*0.9, float64(fused[0].Score), 1e-6)

	cfg.FusionStrategy = FusionMaxScore
	fused = fuse(fuzzyList, semanticList, cfg)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.9, float64(fused[0].Score), 1e-6)
}

func TestRerank_Multipliers(t *testing.T) {
	base := types.SearchResult{
		Chunk: types.Chunk{
			ID:            "X",
			Path:          "internal/auth/login.go",
			StartLine:     1,
			EndLine:       20,
			Content:       "func ValidateLogin(token string) error { ... }",
			TokenEstimate: 40,
		},
		Score:  1.0,
		Source: types.SourceHybrid,
	}

	// Content substring (case-insensitive), path match, primary source.
	out := rerank("validatelogin", []types.SearchResult{base})
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0*boostExactMatch*boostPrimarySrc, float64(out[0].Score), 1e-5)

	out = rerank("login", []types.SearchResult{base})
	assert.InDelta(t, 1.0*boostExactMatch*boostPathMatch*boostPrimarySrc, float64(out[0].Score), 1e-5)

	// Original value untouched.
	assert.Equal(t, float32(1.0), base.Score)
}

func TestRerank_SizePenalties(t *testing.T) {
	tiny := result("tiny", "a.txt", 5, 1.0, types.SourceHybrid)
	tiny.Chunk.EndLine = tiny.Chunk.StartLine + 2 // 3 lines

	huge := result("huge", "b.txt", 900, 1.0, types.SourceHybrid)
	huge.Chunk.EndLine = huge.Chunk.StartLine + 250

	out := rerank("nomatch-query-zzz", []types.SearchResult{tiny, huge})
	require.Len(t, out, 2)

	scores := map[string]float32{}
	for _, r := range out {
		scores[r.Chunk.ID] = r.Score
	}
	assert.InDelta(t, penaltyTinyChunk, float64(scores["tiny"]), 1e-5)
	assert.InDelta(t, penaltyHugeChunk, float64(scores["huge"]), 1e-5)
}
