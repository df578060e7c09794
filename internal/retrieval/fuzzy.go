package retrieval

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/dshills/codescout/pkg/types"
)

// contentPreview caps how much chunk content feeds the fuzzy matcher;
// lexical matches almost always live near the top of a chunk and full
// contents would make matching quadratic in chunk size.
const contentPreview = 500

// fuzzyEngine holds the in-memory lexical corpus. Rebuilt wholesale by
// setChunks; searches take a read lock only.
type fuzzyEngine struct {
	mu     sync.RWMutex
	chunks []types.Chunk
	texts  []string
}

type fuzzySource []string

func (s fuzzySource) String(i int) string { return s[i] }
func (s fuzzySource) Len() int            { return len(s) }

func newFuzzyEngine() *fuzzyEngine {
	return &fuzzyEngine{}
}

// setChunks replaces the corpus.
func (e *fuzzyEngine) setChunks(chunks []types.Chunk, cfg Config) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = searchText(c, cfg)
	}

	e.mu.Lock()
	e.chunks = chunks
	e.texts = texts
	e.mu.Unlock()
}

// searchText builds the matchable text for one chunk: its path and a
// bounded content prefix, per configuration.
func searchText(c types.Chunk, cfg Config) string {
	var parts []string
	if cfg.FuzzyMatchPath {
		parts = append(parts, c.Path)
	}
	if cfg.FuzzyMatchContent {
		content := c.Content
		if len(content) > contentPreview {
			content = content[:contentPreview]
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, " ")
}

// search matches query against the corpus, normalizes raw scores to
// [0,1] by dividing by the matcher's self-match score (its maximum
// possible for this query), drops candidates below the threshold, and
// returns the top limit by normalized score.
func (e *fuzzyEngine) search(query string, cfg Config, limit int) []types.SearchResult {
	e.mu.RLock()
	chunks := e.chunks
	texts := e.texts
	e.mu.RUnlock()

	if len(chunks) == 0 {
		return nil
	}

	maxScore := selfMatchScore(query)
	if maxScore <= 0 {
		return nil
	}

	matches := fuzzy.FindFrom(query, fuzzySource(texts))

	results := make([]types.SearchResult, 0, len(matches))
	for _, m := range matches {
		score := float64(m.Score) / maxScore
		if score > 1 {
			score = 1
		}
		if score < cfg.FuzzyThreshold {
			continue
		}
		results = append(results, types.SearchResult{
			Chunk:  chunks[m.Index],
			Score:  float32(score),
			Source: types.SourceFuzzy,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// selfMatchScore is the matcher's score for a query matched against
// itself, the highest score the query can earn.
func selfMatchScore(query string) float64 {
	self := fuzzy.Find(query, []string{query})
	if len(self) == 0 {
		return 0
	}
	return float64(self[0].Score)
}
