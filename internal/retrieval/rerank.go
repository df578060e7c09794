package retrieval

import (
	"strings"

	"github.com/dshills/codescout/pkg/types"
)

// Contextual rerank multipliers. Independent signals composed
// multiplicatively, so application order is irrelevant.
const (
	boostExactMatch  = 1.3  // query appears verbatim in chunk content
	boostPathMatch   = 1.15 // query appears in the file path
	boostPrimarySrc  = 1.1  // primary source extension for its ecosystem
	penaltyTinyChunk = 0.9  // fewer than 5 lines
	penaltyHugeChunk = 0.85 // more than 200 lines

	tinyChunkLines = 5
	hugeChunkLines = 200
)

// primarySourceExts marks extensions of primary implementation files,
// as opposed to config, docs, or generated artifacts.
var primarySourceExts = map[string]bool{
	"go": true, "rs": true, "py": true,
	"ts": true, "tsx": true, "js": true, "jsx": true,
	"java": true, "kt": true, "c": true, "cc": true, "cpp": true,
	"rb": true, "cs": true, "swift": true,
}

// rerank adjusts fused scores with cheap contextual signals. Returns
// new result values; inputs are never mutated.
func rerank(query string, results []types.SearchResult) []types.SearchResult {
	loweredQuery := strings.ToLower(query)

	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		score := float64(r.Score)

		if strings.Contains(strings.ToLower(r.Chunk.Content), loweredQuery) {
			score *= boostExactMatch
		}
		if strings.Contains(strings.ToLower(r.Chunk.Path), loweredQuery) {
			score *= boostPathMatch
		}
		if primarySourceExts[r.Chunk.Extension()] {
			score *= boostPrimarySrc
		}
		switch lines := r.Chunk.LineCount(); {
		case lines < tinyChunkLines:
			score *= penaltyTinyChunk
		case lines > hugeChunkLines:
			score *= penaltyHugeChunk
		}

		out[i] = r.WithScore(float32(score), r.Source)
	}

	sortFused(out)
	return out
}
